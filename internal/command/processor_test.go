package command

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hearthos/entitlement/internal/service"
	"github.com/hearthos/entitlement/internal/shared"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	svc := service.New(nil, service.Options{
		InactivityTimeout: time.Minute,
		BcryptCost:        bcrypt.MinCost,
	}, nil)
	return NewProcessor(nil, svc)
}

func mustExecute(t *testing.T, p *Processor, line string) string {
	t.Helper()
	out, err := p.Execute(line)
	require.NoError(t, err, "command %q", line)
	return out
}

func seedScript(t *testing.T, p *Processor) {
	t.Helper()
	for _, line := range []string{
		`define_permission, control_light, Control Light, "Turn lights on, off"`,
		`define_permission, control_oven, Control Oven, operate ovens`,
		`define_role, light_role, Light Controller, controls lights`,
		`define_role, admin_role, Administrator, full control`,
		`add_entitlement_to_role, light_role, control_light`,
		`add_entitlement_to_role, admin_role, light_role`,
		`add_entitlement_to_role, admin_role, control_oven`,
		`create_user, alice, Alice Admin`,
		`add_user_credential, alice, password, kitchens!`,
		`add_role_to_user, alice, admin_role`,
		`create_user, bob, Bob Resident`,
		`add_user_credential, bob, voice_print, --bob-voice--`,
		`create_resource_role, kitchen_lights, light_role, house1:kitchen`,
		`add_resource_role_to_user, bob, kitchen_lights`,
	} {
		mustExecute(t, p, line)
	}
}

func TestMutationCommandResults(t *testing.T) {
	p := newTestProcessor(t)
	require.Equal(t, "created permission control_light",
		mustExecute(t, p, "define_permission, control_light, Control Light, lights"))
	require.Equal(t, "created role admin_role",
		mustExecute(t, p, "define_role, admin_role, Admin, everything"))
	require.Equal(t, "added entitlement control_light to role admin_role",
		mustExecute(t, p, "add_entitlement_to_role, admin_role, control_light"))
	require.Equal(t, "created user alice",
		mustExecute(t, p, "create_user, alice, Alice"))
	require.Equal(t, "added password credential for alice",
		mustExecute(t, p, "add_user_credential, alice, password, secret"))
	require.Equal(t, "added role admin_role to user alice",
		mustExecute(t, p, "add_role_to_user, alice, admin_role"))
	require.Equal(t, "created resource role rr1",
		mustExecute(t, p, "create_resource_role, rr1, admin_role, house1"))
}

func TestCommandTokenCaseInsensitive(t *testing.T) {
	p := newTestProcessor(t)
	mustExecute(t, p, "DEFINE_PERMISSION, p1, P One, first")
	_, err := p.Execute("Define_Permission, p1, P One, again")
	require.True(t, shared.IsDuplicate(err))
}

func TestQuotedFieldsUnescaped(t *testing.T) {
	p := newTestProcessor(t)
	mustExecute(t, p, `define_role, r1, "Role, with comma", "says \"hi\""`)
	role, ok := p.svc.Graph.Role("r1")
	require.True(t, ok)
	require.Equal(t, "Role, with comma", role.Name())
	require.Equal(t, `says "hi"`, role.Description())
}

func TestMalformedCommands(t *testing.T) {
	p := newTestProcessor(t)
	cases := []string{
		"",
		"frobnicate, a, b",
		"define_permission, onlyid",
		`define_role, r1, "unterminated`,
		"login wizard gandalf",
		"logout",
		"check_access, missing_token_field",
		"inventory_entitlement_service, extra",
	}
	for _, line := range cases {
		_, err := p.Execute(line)
		var malformed *shared.MalformedCommandError
		require.True(t, errors.As(err, &malformed), "line %q gave %v", line, err)
	}
}

func TestMalformedCommandNeverEchoesSecrets(t *testing.T) {
	p := newTestProcessor(t)
	_, err := p.Execute("add_user_credential, alice, password")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "alice")
}

func TestLoginLogoutRoundTrip(t *testing.T) {
	p := newTestProcessor(t)
	seedScript(t, p)

	token := mustExecute(t, p, "login user alice, password kitchens!")
	require.NotEmpty(t, token)

	require.Equal(t, "Access Granted",
		mustExecute(t, p, "check_access "+token+", control_light, house1:kitchen:light1"))

	require.Equal(t, "logged out", mustExecute(t, p, "logout "+token))

	_, err := p.Execute("check_access " + token + ", control_light, house1:kitchen:light1")
	require.True(t, errors.Is(err, shared.ErrInvalidToken))

	_, err = p.Execute("logout " + token)
	require.True(t, errors.Is(err, shared.ErrTokenNotFound))
}

func TestLoginFailures(t *testing.T) {
	p := newTestProcessor(t)
	seedScript(t, p)

	_, err := p.Execute("login user alice, password wrong")
	require.True(t, errors.Is(err, shared.ErrAuthenticationFailed))
	require.NotContains(t, err.Error(), "wrong")

	_, err = p.Execute("login user nobody, password kitchens!")
	require.True(t, errors.Is(err, shared.ErrAuthenticationFailed))

	_, err = p.Execute("login voiceprint --unknown--")
	require.True(t, errors.Is(err, shared.ErrAuthenticationFailed))
}

func TestAdministrativePathIgnoresResource(t *testing.T) {
	p := newTestProcessor(t)
	seedScript(t, p)
	token := mustExecute(t, p, "login user alice, password kitchens!")

	require.Equal(t, "Access Granted",
		mustExecute(t, p, "check_access "+token+", control_light, anything"))
	require.Equal(t, "Access Granted",
		mustExecute(t, p, "check_access "+token+", control_oven, house9:garage"))
}

func TestScopedPathHonorsBindings(t *testing.T) {
	p := newTestProcessor(t)
	seedScript(t, p)
	token := mustExecute(t, p, "login voiceprint --bob-voice--")

	require.Equal(t, "Access Granted",
		mustExecute(t, p, "check_access "+token+", control_light, house1:kitchen:light1"))

	_, err := p.Execute("check_access " + token + ", control_light, house1:bath:light1")
	require.True(t, errors.Is(err, shared.ErrAccessDenied))
	require.False(t, errors.Is(err, shared.ErrInvalidToken), "denial must be distinguishable from invalid token")

	// bob's voiceprint token never reaches alice's oven permission.
	_, err = p.Execute("check_access " + token + ", control_oven, house1:kitchen:oven1")
	require.True(t, errors.Is(err, shared.ErrAccessDenied))
}

func TestInventoryDump(t *testing.T) {
	p := newTestProcessor(t)
	seedScript(t, p)
	mustExecute(t, p, "login voiceprint --bob-voice--")

	out := mustExecute(t, p, "inventory_entitlement_service")
	require.Contains(t, out, "alice (Alice Admin)")
	require.Contains(t, out, "role admin_role")
	require.Contains(t, out, "permission control_light")
	require.Contains(t, out, "kitchen_lights role=light_role resource=house1:kitchen")
	require.Contains(t, out, "user=bob administrative=false")
	// Token values are handles; they must never appear in diagnostics.
	require.NotContains(t, out, "--bob-voice--")
}

func TestAllOrNothingOnFailure(t *testing.T) {
	p := newTestProcessor(t)
	seedScript(t, p)

	// Failed mutation leaves the registry untouched.
	_, err := p.Execute("create_resource_role, kitchen_lights, light_role, house2")
	require.True(t, shared.IsDuplicate(err))
	bindings := p.svc.Principals.SnapshotBindings()
	require.Len(t, bindings, 1)
	require.Equal(t, "house1:kitchen", bindings[0].ResourceName)
}
