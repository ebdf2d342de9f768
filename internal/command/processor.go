package command

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hearthos/entitlement/internal/access"
	"github.com/hearthos/entitlement/internal/principals"
	"github.com/hearthos/entitlement/internal/service"
	"github.com/hearthos/entitlement/internal/shared"
)

// Processor is the textual command surface over the entitlement core:
// one command per call, fields comma-separated, the first token
// selecting the operation case-insensitively. Double-quoted fields may
// contain commas and spaces and are unescaped before use. Failures are
// typed (§ shared errors) and mutate nothing.
type Processor struct {
	logger   *slog.Logger
	svc      *service.Service
	validate *validator.Validate
}

// NewProcessor constructs a Processor over the given service.
func NewProcessor(logger *slog.Logger, svc *service.Service) *Processor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Processor{
		logger:   logger,
		svc:      svc,
		validate: validator.New(),
	}
}

// Execute runs a single command line and returns its success value.
func (p *Processor) Execute(line string) (string, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", shared.NewMalformedCommand("", "empty command")
	}

	primary := primaryToken(trimmed)
	fields, err := splitFields(trimmed)
	if err != nil {
		return "", shared.NewMalformedCommand(primary, err.Error())
	}

	// The first comma field starts with the operation token; anything
	// after it on that field is the command's inline argument.
	inline := strings.TrimSpace(fields[0][len(primary):])
	args, err := unquoteAll(fields[1:])
	if err != nil {
		return "", shared.NewMalformedCommand(primary, err.Error())
	}

	switch primary {
	case "login", "logout", "check_access":
		// These carry the token or login method inline; the handlers
		// parse it themselves.
	default:
		if inline != "" {
			value, uerr := unquote(inline)
			if uerr != nil {
				return "", shared.NewMalformedCommand(primary, uerr.Error())
			}
			args = append([]string{value}, args...)
		}
	}

	switch primary {
	case "define_permission":
		return p.definePermission(args)
	case "define_role":
		return p.defineRole(args)
	case "add_entitlement_to_role":
		return p.addEntitlementToRole(args)
	case "create_user":
		return p.createUser(args)
	case "add_user_credential":
		return p.addUserCredential(args)
	case "add_role_to_user":
		return p.addRoleToUser(args)
	case "create_resource_role":
		return p.createResourceRole(args)
	case "add_resource_role_to_user":
		return p.addResourceRoleToUser(args)
	case "login":
		return p.login(inline, args)
	case "logout":
		return p.logout(inline, args)
	case "check_access":
		return p.checkAccess(inline, args)
	case "inventory_entitlement_service":
		if inline != "" || len(args) != 0 {
			return "", shared.NewMalformedCommand(primary, "takes no fields")
		}
		return p.inventory()
	default:
		return "", shared.NewMalformedCommand(primary, "unknown command")
	}
}

type definePermissionCmd struct {
	ID          string `validate:"required"`
	Name        string `validate:"required"`
	Description string
}

func (p *Processor) definePermission(args []string) (string, error) {
	cmd := definePermissionCmd{}
	if err := bindArgs("define_permission", args, 3, &cmd.ID, &cmd.Name, &cmd.Description); err != nil {
		return "", err
	}
	if err := p.checkStruct("define_permission", cmd); err != nil {
		return "", err
	}
	if _, err := p.svc.Graph.DefinePermission(cmd.ID, cmd.Name, cmd.Description); err != nil {
		return "", err
	}
	return "created permission " + cmd.ID, nil
}

type defineRoleCmd struct {
	ID          string `validate:"required"`
	Name        string `validate:"required"`
	Description string
}

func (p *Processor) defineRole(args []string) (string, error) {
	cmd := defineRoleCmd{}
	if err := bindArgs("define_role", args, 3, &cmd.ID, &cmd.Name, &cmd.Description); err != nil {
		return "", err
	}
	if err := p.checkStruct("define_role", cmd); err != nil {
		return "", err
	}
	if _, err := p.svc.Graph.DefineRole(cmd.ID, cmd.Name, cmd.Description); err != nil {
		return "", err
	}
	return "created role " + cmd.ID, nil
}

type addEntitlementToRoleCmd struct {
	RoleID        string `validate:"required"`
	EntitlementID string `validate:"required"`
}

func (p *Processor) addEntitlementToRole(args []string) (string, error) {
	cmd := addEntitlementToRoleCmd{}
	if err := bindArgs("add_entitlement_to_role", args, 2, &cmd.RoleID, &cmd.EntitlementID); err != nil {
		return "", err
	}
	if err := p.checkStruct("add_entitlement_to_role", cmd); err != nil {
		return "", err
	}
	if err := p.svc.Graph.AddToRole(cmd.RoleID, cmd.EntitlementID); err != nil {
		return "", err
	}
	return fmt.Sprintf("added entitlement %s to role %s", cmd.EntitlementID, cmd.RoleID), nil
}

type createUserCmd struct {
	ID   string `validate:"required"`
	Name string `validate:"required"`
}

func (p *Processor) createUser(args []string) (string, error) {
	cmd := createUserCmd{}
	if err := bindArgs("create_user", args, 2, &cmd.ID, &cmd.Name); err != nil {
		return "", err
	}
	if err := p.checkStruct("create_user", cmd); err != nil {
		return "", err
	}
	if _, err := p.svc.Principals.CreateUser(cmd.ID, cmd.Name); err != nil {
		return "", err
	}
	return "created user " + cmd.ID, nil
}

type addUserCredentialCmd struct {
	UserID string `validate:"required"`
	Kind   string `validate:"required"`
	Secret string `validate:"required"`
}

func (p *Processor) addUserCredential(args []string) (string, error) {
	cmd := addUserCredentialCmd{}
	if err := bindArgs("add_user_credential", args, 3, &cmd.UserID, &cmd.Kind, &cmd.Secret); err != nil {
		return "", err
	}
	if err := p.checkStruct("add_user_credential", cmd); err != nil {
		return "", err
	}
	var kind principals.CredentialKind
	switch strings.ToLower(cmd.Kind) {
	case "password":
		kind = principals.KindPassword
	case "voice_print":
		kind = principals.KindVoiceprint
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidCredentialKind, cmd.Kind)
	}
	if err := p.svc.Principals.AddCredential(cmd.UserID, kind, cmd.Secret); err != nil {
		return "", err
	}
	return fmt.Sprintf("added %s credential for %s", kind, cmd.UserID), nil
}

type addRoleToUserCmd struct {
	UserID string `validate:"required"`
	RoleID string `validate:"required"`
}

func (p *Processor) addRoleToUser(args []string) (string, error) {
	cmd := addRoleToUserCmd{}
	if err := bindArgs("add_role_to_user", args, 2, &cmd.UserID, &cmd.RoleID); err != nil {
		return "", err
	}
	if err := p.checkStruct("add_role_to_user", cmd); err != nil {
		return "", err
	}
	if _, ok := p.svc.Graph.Role(cmd.RoleID); !ok {
		return "", shared.NewNotFound(shared.KindRole, cmd.RoleID)
	}
	if err := p.svc.Principals.GrantEntitlement(cmd.UserID, cmd.RoleID); err != nil {
		return "", err
	}
	return fmt.Sprintf("added role %s to user %s", cmd.RoleID, cmd.UserID), nil
}

type createResourceRoleCmd struct {
	Name         string `validate:"required"`
	RoleID       string `validate:"required"`
	ResourceName string `validate:"required"`
}

func (p *Processor) createResourceRole(args []string) (string, error) {
	cmd := createResourceRoleCmd{}
	if err := bindArgs("create_resource_role", args, 3, &cmd.Name, &cmd.RoleID, &cmd.ResourceName); err != nil {
		return "", err
	}
	if err := p.checkStruct("create_resource_role", cmd); err != nil {
		return "", err
	}
	if _, err := p.svc.Principals.CreateBinding(cmd.Name, cmd.RoleID, cmd.ResourceName); err != nil {
		return "", err
	}
	return "created resource role " + cmd.Name, nil
}

type addResourceRoleToUserCmd struct {
	UserID      string `validate:"required"`
	BindingName string `validate:"required"`
}

func (p *Processor) addResourceRoleToUser(args []string) (string, error) {
	cmd := addResourceRoleToUserCmd{}
	if err := bindArgs("add_resource_role_to_user", args, 2, &cmd.UserID, &cmd.BindingName); err != nil {
		return "", err
	}
	if err := p.checkStruct("add_resource_role_to_user", cmd); err != nil {
		return "", err
	}
	if err := p.svc.Principals.BindToUser(cmd.UserID, cmd.BindingName); err != nil {
		return "", err
	}
	return fmt.Sprintf("added resource role %s to user %s", cmd.BindingName, cmd.UserID), nil
}

// login handles both forms:
//
//	login user <id>, password <secret>
//	login voiceprint <secret>
func (p *Processor) login(inline string, args []string) (string, error) {
	method, rest, _ := strings.Cut(inline, " ")
	switch strings.ToLower(method) {
	case "user":
		userID, err := unquote(strings.TrimSpace(rest))
		if err != nil || userID == "" {
			return "", shared.NewMalformedCommand("login", "expected login user <id>, password <secret>")
		}
		if len(args) != 1 {
			return "", shared.NewMalformedCommand("login", "expected login user <id>, password <secret>")
		}
		secret, err := keywordValue(args[0], "password")
		if err != nil {
			return "", shared.NewMalformedCommand("login", err.Error())
		}
		token, err := p.svc.LoginPassword(userID, secret)
		if err != nil {
			return "", err
		}
		return token.Value, nil
	case "voiceprint":
		if len(args) != 0 {
			return "", shared.NewMalformedCommand("login", "expected login voiceprint <secret>")
		}
		secret, err := unquote(strings.TrimSpace(rest))
		if err != nil || secret == "" {
			return "", shared.NewMalformedCommand("login", "expected login voiceprint <secret>")
		}
		token, err := p.svc.LoginVoiceprint(secret)
		if err != nil {
			return "", err
		}
		return token.Value, nil
	default:
		return "", shared.NewMalformedCommand("login", "unknown login method")
	}
}

func (p *Processor) logout(inline string, args []string) (string, error) {
	if inline == "" || len(args) != 0 {
		return "", shared.NewMalformedCommand("logout", "expected logout <token>")
	}
	token, err := unquote(inline)
	if err != nil {
		return "", shared.NewMalformedCommand("logout", err.Error())
	}
	if err := p.svc.Logout(token); err != nil {
		return "", fmt.Errorf("%w: %s", err, token)
	}
	return "logged out", nil
}

func (p *Processor) checkAccess(inline string, args []string) (string, error) {
	if inline == "" || len(args) != 2 {
		return "", shared.NewMalformedCommand("check_access", "expected check_access <token>, <permission>, <resource>")
	}
	token, err := unquote(inline)
	if err != nil {
		return "", shared.NewMalformedCommand("check_access", err.Error())
	}
	permissionID, resourceName := args[0], args[1]

	decision := p.svc.CheckAccess(token, permissionID, resourceName)
	if decision.Granted {
		return "Access Granted", nil
	}
	if decision.Reason == access.ReasonInvalidToken {
		return "", fmt.Errorf("%w: %s", shared.ErrInvalidToken, token)
	}
	return "", fmt.Errorf("%w: permission %q on resource %q (%s)",
		shared.ErrAccessDenied, permissionID, resourceName, decision.Reason)
}

func (p *Processor) inventory() (string, error) {
	inv := p.svc.Snapshot()
	var b strings.Builder

	b.WriteString("users:\n")
	for _, u := range inv.Users {
		fmt.Fprintf(&b, "  %s (%s) credentials=%d entitlements=%v resource_roles=%v\n",
			u.ID, u.Name, u.Credentials, u.Entitlements, u.Bindings)
	}
	b.WriteString("entitlements:\n")
	for _, e := range inv.Entitlements {
		if e.IsRole {
			fmt.Fprintf(&b, "  role %s (%s) children=%v\n", e.ID, e.Name, e.ChildIDs)
		} else {
			fmt.Fprintf(&b, "  permission %s (%s)\n", e.ID, e.Name)
		}
	}
	b.WriteString("resource roles:\n")
	for _, rr := range inv.Bindings {
		fmt.Fprintf(&b, "  %s role=%s resource=%s\n", rr.Name, rr.RoleID, rr.ResourceName)
	}
	b.WriteString("resources:\n")
	for _, name := range inv.Resources {
		fmt.Fprintf(&b, "  %s\n", name)
	}
	b.WriteString("active tokens:\n")
	for _, tok := range inv.Tokens {
		fmt.Fprintf(&b, "  user=%s administrative=%t\n", tok.UserID, tok.Administrative)
	}
	return b.String(), nil
}

// checkStruct runs validator tags over a parsed command and converts
// failures to MalformedCommand. Field values never appear in the error.
func (p *Processor) checkStruct(command string, cmd any) error {
	if err := p.validate.Struct(cmd); err != nil {
		var missing []string
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				missing = append(missing, fieldErr.Field())
			}
		}
		return shared.NewMalformedCommand(command, "missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}

// bindArgs maps positional fields onto command struct fields.
func bindArgs(command string, args []string, want int, dests ...*string) error {
	if len(args) != want {
		return shared.NewMalformedCommand(command, fmt.Sprintf("expected %d fields, got %d", want, len(args)))
	}
	for i, dest := range dests {
		*dest = args[i]
	}
	return nil
}

// keywordValue parses fields of the shape "<keyword> <value>", with an
// optionally quoted value.
func keywordValue(field, keyword string) (string, error) {
	word, rest, found := strings.Cut(field, " ")
	if !found || !strings.EqualFold(word, keyword) {
		return "", fmt.Errorf("expected %s <value>", keyword)
	}
	value, err := unquote(strings.TrimSpace(rest))
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", fmt.Errorf("expected %s <value>", keyword)
	}
	return value, nil
}
