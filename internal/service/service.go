package service

import (
	"io"
	"log/slog"
	"time"

	"github.com/hearthos/entitlement/internal/access"
	"github.com/hearthos/entitlement/internal/entitlements"
	"github.com/hearthos/entitlement/internal/observability"
	"github.com/hearthos/entitlement/internal/principals"
	"github.com/hearthos/entitlement/internal/resources"
	"github.com/hearthos/entitlement/internal/tokens"
)

// Options carries the tunables the service needs at construction.
type Options struct {
	InactivityTimeout time.Duration
	BcryptCost        int
}

// Service is the explicit context object holding every registry of the
// entitlement core. Multiple isolated instances can coexist, e.g. in
// tests; nothing here is process-global.
type Service struct {
	logger  *slog.Logger
	metrics *observability.Metrics

	Graph      *entitlements.Graph
	Resources  *resources.Registry
	Principals *principals.Registry
	Tokens     *tokens.Store
	Evaluator  *access.Evaluator
}

// New wires a fresh, empty entitlement core.
func New(logger *slog.Logger, opts Options, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	graph := entitlements.NewGraph()
	res := resources.NewRegistry()
	principalReg := principals.NewRegistry(graph, res, opts.BcryptCost)
	tokenStore := tokens.NewStore(opts.InactivityTimeout)
	return &Service{
		logger:     logger,
		metrics:    metrics,
		Graph:      graph,
		Resources:  res,
		Principals: principalReg,
		Tokens:     tokenStore,
		Evaluator:  access.NewEvaluator(logger, graph, principalReg, res, tokenStore, metrics),
	}
}

// LoginPassword authenticates the named user against their password
// credentials and mints an administrative-path token on success.
func (s *Service) LoginPassword(userID, secret string) (tokens.AccessToken, error) {
	user, cred, err := s.Principals.FindByPassword(userID, secret)
	if err != nil {
		s.metrics.ObserveLogin("failed")
		s.logger.Info("login failed", slog.String("method", "password"))
		return tokens.AccessToken{}, err
	}
	return s.mint(user, cred)
}

// LoginVoiceprint authenticates the secret against every user's
// voiceprint credentials and mints a scoped-path token on success.
func (s *Service) LoginVoiceprint(secret string) (tokens.AccessToken, error) {
	user, cred, err := s.Principals.FindByVoiceprint(secret)
	if err != nil {
		s.metrics.ObserveLogin("failed")
		s.logger.Info("login failed", slog.String("method", "voiceprint"))
		return tokens.AccessToken{}, err
	}
	return s.mint(user, cred)
}

func (s *Service) mint(user *principals.User, cred *principals.Credential) (tokens.AccessToken, error) {
	token := s.Tokens.Mint(user.ID, string(cred.Kind), cred.Administrative())
	s.metrics.ObserveLogin("ok")
	s.metrics.SetActiveTokens(s.Tokens.Active())
	s.logger.Info("login",
		slog.String("user", user.ID),
		slog.Bool("administrative", token.Administrative),
	)
	return token, nil
}

// Logout invalidates the token permanently.
func (s *Service) Logout(tokenValue string) error {
	if err := s.Tokens.Logout(tokenValue); err != nil {
		return err
	}
	s.metrics.SetActiveTokens(s.Tokens.Active())
	return nil
}

// CheckAccess delegates to the evaluator.
func (s *Service) CheckAccess(tokenValue, permissionID, resourceName string) access.Decision {
	return s.Evaluator.CheckAccess(tokenValue, permissionID, resourceName)
}

// Inventory is a diagnostic dump of every registered entity.
type Inventory struct {
	Users        []principals.UserInfo
	Entitlements []entitlements.EntitlementInfo
	Bindings     []principals.Binding
	Resources    []string
	Tokens       []tokens.TokenInfo
}

// Snapshot collects the current inventory.
func (s *Service) Snapshot() Inventory {
	return Inventory{
		Users:        s.Principals.SnapshotUsers(),
		Entitlements: s.Graph.Snapshot(),
		Bindings:     s.Principals.SnapshotBindings(),
		Resources:    s.Resources.Names(),
		Tokens:       s.Tokens.Snapshot(),
	}
}
