package access

import (
	"io"
	"log/slog"
	"time"

	"github.com/hearthos/entitlement/internal/entitlements"
	"github.com/hearthos/entitlement/internal/observability"
	"github.com/hearthos/entitlement/internal/principals"
	"github.com/hearthos/entitlement/internal/resources"
	"github.com/hearthos/entitlement/internal/tokens"
)

// Reason classifies a decision for diagnostics. Callers branch on
// Granted, not on the reason.
type Reason string

const (
	ReasonGranted           Reason = "granted"
	ReasonInvalidToken      Reason = "invalid_token"
	ReasonUnknownPermission Reason = "unknown_permission"
	ReasonNotGranted        Reason = "not_granted"
)

// Decision is the outcome of one access check. A denial is a first-class
// result, not an error.
type Decision struct {
	Granted bool
	Reason  Reason
}

// Evaluator renders access decisions against the registries. It blocks
// only on their in-memory locks; callers apply their own timeouts if
// they need any.
type Evaluator struct {
	logger     *slog.Logger
	graph      *entitlements.Graph
	principals *principals.Registry
	resources  *resources.Registry
	tokens     *tokens.Store
	metrics    *observability.Metrics
}

// NewEvaluator constructs an Evaluator over the given registries.
func NewEvaluator(
	logger *slog.Logger,
	graph *entitlements.Graph,
	principalReg *principals.Registry,
	resourceReg *resources.Registry,
	tokenStore *tokens.Store,
	metrics *observability.Metrics,
) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Evaluator{
		logger:     logger,
		graph:      graph,
		principals: principalReg,
		resources:  resourceReg,
		tokens:     tokenStore,
		metrics:    metrics,
	}
}

// CheckAccess decides whether the bearer of the token may perform the
// permission on the resource.
//
// Administrative tokens evaluate the user's directly-granted
// entitlements and ignore the resource entirely; scoped tokens evaluate
// the user's resource-role bindings, requiring the binding's resource to
// cover the queried one and its role to grant the permission. A grant
// refreshes the token's activity timestamp; a denial leaves token state
// unchanged.
func (e *Evaluator) CheckAccess(tokenValue, permissionID, resourceName string) Decision {
	start := time.Now()
	decision := e.evaluate(tokenValue, permissionID, resourceName)
	e.metrics.ObserveCheck(string(decision.Reason), time.Since(start))
	e.logger.Debug("check access",
		slog.String("permission", permissionID),
		slog.String("resource", resourceName),
		slog.Bool("granted", decision.Granted),
		slog.String("reason", string(decision.Reason)),
	)
	return decision
}

func (e *Evaluator) evaluate(tokenValue, permissionID, resourceName string) Decision {
	token, ok := e.tokens.Resolve(tokenValue)
	if !ok {
		return Decision{Reason: ReasonInvalidToken}
	}

	if _, ok := e.graph.Permission(permissionID); !ok {
		return Decision{Reason: ReasonUnknownPermission}
	}

	// Resources are referenced, not pre-declared, by evaluation callers.
	queried := e.resources.Ensure(resourceName)

	granted := false
	if token.Administrative {
		for _, entitlementID := range e.principals.DirectEntitlements(token.UserID) {
			if e.graph.Grants(entitlementID, permissionID) {
				granted = true
				break
			}
		}
	} else {
		for _, binding := range e.principals.UserBindings(token.UserID) {
			// A binding covers the queried resource when its name is the
			// queried name or one of the queried name's ancestors.
			if resources.Contains(queried.Name, binding.ResourceName) && e.graph.Grants(binding.RoleID, permissionID) {
				granted = true
				break
			}
		}
	}

	if !granted {
		return Decision{Reason: ReasonNotGranted}
	}
	e.tokens.Touch(tokenValue)
	return Decision{Granted: true, Reason: ReasonGranted}
}
