package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/auth"
	"github.com/jogjaantibully/kanal/internal/captcha"
	"github.com/jogjaantibully/kanal/internal/model"
)

func newTestGate(repo *fakeUserRepo) *GateService {
	return NewGateService(repo, captcha.PresenceVerifier{}, discardLogger())
}

var errStoreDown = errors.New("store unavailable")

// =========================================================================
// ROUTING
// =========================================================================

func TestRouteByRole(t *testing.T) {
	tests := []struct {
		name    string
		profile *model.UserProfile
		want    string
	}{
		{"admin", &model.UserProfile{Role: model.RoleAdmin}, RouteAdminDashboard},
		{"user", &model.UserProfile{Role: model.RoleUser}, RouteChat},
		{"empty role", &model.UserProfile{}, RouteChat},
		{"unknown role", &model.UserProfile{Role: "moderator"}, RouteChat},
		{"no profile", nil, RouteChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RouteByRole(tt.profile))
		})
	}
}

func TestParseEntry(t *testing.T) {
	for _, s := range []string{"login", "admin-login", "register"} {
		e, err := ParseEntry(s)
		require.NoError(t, err)
		assert.Equal(t, Entry(s), e)
	}

	_, err := ParseEntry("signup")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

// =========================================================================
// ENSURE PROFILE
// =========================================================================

func TestEnsureProfile_CreatesWithPlaceholders(t *testing.T) {
	repo := newFakeUserRepo()
	gate := newTestGate(repo)

	p := &auth.Principal{Subject: "u9", Email: "x@y.z"}
	profile, created, err := gate.EnsureProfile(context.Background(), p, ProfileOptions{})
	require.NoError(t, err)

	assert.True(t, created)
	assert.Equal(t, "u9", profile.ID)
	assert.Equal(t, model.DefaultProfileName, profile.Name)
	assert.Equal(t, model.DefaultProfilePicture, profile.ProfilePicture)
	assert.Equal(t, model.RoleUser, profile.Role)
	assert.Nil(t, profile.EmailVerified, "login entry does not record email verification")
}

func TestEnsureProfile_ExistingIsNoop(t *testing.T) {
	repo := newFakeUserRepo()
	repo.put(model.UserProfile{ID: "u2", Name: "Old Name", Role: model.RoleAdmin})
	gate := newTestGate(repo)

	p := &auth.Principal{Subject: "u2", DisplayName: "New Name", PhotoURL: "https://new"}
	profile, created, err := gate.EnsureProfile(context.Background(), p, ProfileOptions{RecordEmailVerified: true})
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, 0, repo.setCalls)
	assert.Equal(t, "Old Name", profile.Name, "existing fields are not refreshed")
	assert.Equal(t, model.RoleAdmin, profile.Role)
}

// Calling twice never touches the role, even when someone changed it in the
// store between the calls.
func TestEnsureProfile_Idempotent(t *testing.T) {
	repo := newFakeUserRepo()
	gate := newTestGate(repo)
	ctx := context.Background()
	p := &auth.Principal{Subject: "u7", DisplayName: "Gita"}

	_, created, err := gate.EnsureProfile(ctx, p, ProfileOptions{})
	require.NoError(t, err)
	require.True(t, created)

	// out-of-band promotion
	promoted, _ := repo.stored("u7")
	promoted.Role = model.RoleAdmin
	repo.put(promoted)

	profile, created, err := gate.EnsureProfile(ctx, p, ProfileOptions{})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.RoleAdmin, profile.Role)
	assert.Equal(t, 1, repo.setCalls)
}

func TestEnsureProfile_StoreFailures(t *testing.T) {
	tests := []struct {
		name   string
		getErr error
		setErr error
	}{
		{"read fails", errStoreDown, nil},
		{"write fails", nil, errStoreDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeUserRepo()
			repo.getErr = tt.getErr
			repo.setErr = tt.setErr
			gate := newTestGate(repo)

			_, _, err := gate.EnsureProfile(context.Background(), &auth.Principal{Subject: "u1"}, ProfileOptions{})

			assert.True(t, errors.Is(err, apperror.ErrProfilePersistence))
			assert.True(t, errors.Is(err, errStoreDown), "cause is kept")
		})
	}
}

// Scenario E: two first sign-ins race for the same brand-new subject.
func TestEnsureProfile_ConcurrentFirstSignIn(t *testing.T) {
	repo := newFakeUserRepo()
	gate := newTestGate(repo)
	p := &auth.Principal{Subject: "u3", DisplayName: "Citra"}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = gate.EnsureProfile(context.Background(), p, ProfileOptions{})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	assert.Len(t, repo.profiles, 1)
	stored, ok := repo.stored("u3")
	require.True(t, ok)
	assert.Equal(t, model.RoleUser, stored.Role)
	assert.Equal(t, "Citra", stored.Name)
}

// =========================================================================
// ON MOUNT
// =========================================================================

func TestOnMount(t *testing.T) {
	repo := newFakeUserRepo()
	repo.put(model.UserProfile{ID: "admin-1", Role: model.RoleAdmin})
	repo.put(model.UserProfile{ID: "user-1", Role: model.RoleUser})
	gate := newTestGate(repo)

	tests := []struct {
		name      string
		principal *auth.Principal
		entry     Entry
		want      Decision
	}{
		{"anonymous login", nil, EntryLogin, Decision{Kind: RenderSignIn}},
		{"anonymous register", nil, EntryRegister, Decision{Kind: RenderSignIn}},
		{"admin on admin-login", &auth.Principal{Subject: "admin-1"}, EntryAdminLogin, Decision{Kind: Redirect, Target: RouteAdminDashboard}},
		{"admin on login", &auth.Principal{Subject: "admin-1"}, EntryLogin, Decision{Kind: Redirect, Target: RouteAdminDashboard}},
		{"user on login", &auth.Principal{Subject: "user-1"}, EntryLogin, Decision{Kind: Redirect, Target: RouteChat}},
		{"no profile yet", &auth.Principal{Subject: "ghost"}, EntryLogin, Decision{Kind: Redirect, Target: RouteChat}},
		{"admin on register", &auth.Principal{Subject: "admin-1"}, EntryRegister, Decision{Kind: Redirect, Target: RouteChat}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gate.OnMount(context.Background(), &fakeSession{principal: tt.principal}, tt.entry)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOnMount_ReadFailureRendersSignIn(t *testing.T) {
	repo := newFakeUserRepo()
	repo.getErr = errStoreDown
	gate := newTestGate(repo)

	got, err := gate.OnMount(context.Background(), &fakeSession{principal: &auth.Principal{Subject: "u1"}}, EntryLogin)

	assert.Equal(t, RenderSignIn, got.Kind)
	assert.True(t, errors.Is(err, apperror.ErrProfilePersistence))
}

// =========================================================================
// START
// =========================================================================

func TestStart_RedirectsToProvider(t *testing.T) {
	gate := newTestGate(newFakeUserRepo())
	provider := &fakeProvider{}

	out, err := gate.Start(context.Background(), &fakeSession{}, EntryLogin, "", provider, "st", "ch")
	require.NoError(t, err)

	assert.Equal(t, StateAuthenticating, out.State)
	assert.Equal(t, "https://idp.example/authorize?state=st&code_challenge=ch", out.Redirect)
}

// Scenario C: no captcha token, no provider call.
func TestStart_RegisterWithoutCaptcha(t *testing.T) {
	gate := newTestGate(newFakeUserRepo())
	provider := &fakeProvider{}

	out, err := gate.Start(context.Background(), &fakeSession{}, EntryRegister, "", provider, "st", "ch")

	assert.True(t, errors.Is(err, apperror.ErrVerificationIncomplete))
	assert.Equal(t, StateError, out.State)
	assert.Equal(t, 0, provider.authURLCalls)
	assert.Equal(t, 0, provider.exchangeCalls)
}

func TestStart_RegisterWithCaptcha(t *testing.T) {
	gate := newTestGate(newFakeUserRepo())
	provider := &fakeProvider{}

	out, err := gate.Start(context.Background(), &fakeSession{}, EntryRegister, "token", provider, "st", "ch")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticating, out.State)
	assert.Equal(t, 1, provider.authURLCalls)
}

// A retry after a provisioning failure skips the provider entirely.
func TestStart_ResumesWithAmbientPrincipal(t *testing.T) {
	repo := newFakeUserRepo()
	gate := newTestGate(repo)
	provider := &fakeProvider{}
	sess := &fakeSession{principal: &auth.Principal{Subject: "u5", DisplayName: "Eka"}}

	out, err := gate.Start(context.Background(), sess, EntryLogin, "", provider, "st", "ch")
	require.NoError(t, err)

	assert.Equal(t, StateRedirecting, out.State)
	assert.Equal(t, RouteChat, out.Redirect)
	assert.True(t, out.Created)
	assert.Equal(t, 0, provider.authURLCalls)
	_, ok := repo.stored("u5")
	assert.True(t, ok)
}

// =========================================================================
// CALLBACK AND COMPOSITE FLOWS
// =========================================================================

// Scenario A: first registration lands on /login signed out.
func TestHandleCallback_Register(t *testing.T) {
	repo := newFakeUserRepo()
	gate := newTestGate(repo)
	sess := &fakeSession{}
	provider := &fakeProvider{principal: &auth.Principal{
		Subject: "u1", DisplayName: "Alice", Email: "a@x.com", EmailVerified: true,
	}}

	out, err := gate.HandleCallback(context.Background(), sess, EntryRegister, provider, Callback{Code: "c"})
	require.NoError(t, err)

	stored, ok := repo.stored("u1")
	require.True(t, ok)
	assert.Equal(t, "Alice", stored.Name)
	assert.Equal(t, "a@x.com", stored.Email)
	assert.Equal(t, model.DefaultProfilePicture, stored.ProfilePicture)
	assert.Equal(t, model.RoleUser, stored.Role)
	require.NotNil(t, stored.EmailVerified)
	assert.True(t, *stored.EmailVerified)

	assert.Equal(t, StateRedirecting, out.State)
	assert.Equal(t, "/login?registered=new", out.Redirect)
	assert.Equal(t, 1, sess.signIns)
	assert.Equal(t, 1, sess.signOuts)
	_, authed := sess.Current(context.Background())
	assert.False(t, authed, "registration never leaves the visitor signed in")
}

func TestHandleCallback_RegisterExistingAccount(t *testing.T) {
	repo := newFakeUserRepo()
	repo.put(model.UserProfile{ID: "u1", Name: "Alice", Role: model.RoleUser})
	gate := newTestGate(repo)
	sess := &fakeSession{}
	provider := &fakeProvider{principal: &auth.Principal{Subject: "u1", DisplayName: "Alice"}}

	out, err := gate.HandleCallback(context.Background(), sess, EntryRegister, provider, Callback{Code: "c"})
	require.NoError(t, err)

	assert.Equal(t, "/login?registered=existing", out.Redirect)
	assert.Equal(t, 0, repo.setCalls)
	assert.Equal(t, 1, sess.signOuts)
}

// Scenario B: existing admin signs in through admin-login.
func TestHandleCallback_AdminLogin(t *testing.T) {
	repo := newFakeUserRepo()
	repo.put(model.UserProfile{ID: "u2", Name: "Budi", Role: model.RoleAdmin})
	gate := newTestGate(repo)
	sess := &fakeSession{}
	provider := &fakeProvider{principal: &auth.Principal{Subject: "u2", DisplayName: "Budi"}}

	out, err := gate.HandleCallback(context.Background(), sess, EntryAdminLogin, provider, Callback{Code: "c"})
	require.NoError(t, err)

	assert.Equal(t, RouteAdminDashboard, out.Redirect)
	assert.False(t, out.Created)
	assert.Equal(t, 0, repo.setCalls)
	assert.Equal(t, 0, sess.signOuts)
	p, ok := sess.Current(context.Background())
	require.True(t, ok)
	assert.Equal(t, "u2", p.Subject)
}

// Scenario D: the visitor closes the consent screen.
func TestHandleCallback_Cancelled(t *testing.T) {
	repo := newFakeUserRepo()
	gate := newTestGate(repo)
	sess := &fakeSession{}
	provider := &fakeProvider{principal: &auth.Principal{Subject: "u1"}}

	out, err := gate.HandleCallback(context.Background(), sess, EntryLogin, provider, Callback{Error: "access_denied"})

	assert.True(t, errors.Is(err, apperror.ErrAuthCancelled))
	assert.Equal(t, StateError, out.State)
	assert.Empty(t, out.Redirect, "failures never redirect")
	assert.Equal(t, 0, provider.exchangeCalls)
	assert.Equal(t, 0, sess.signIns)
	assert.Equal(t, 0, repo.getCalls)
}

func TestHandleCallback_ProviderFailure(t *testing.T) {
	tests := []struct {
		name string
		cb   Callback
		err  error
	}{
		{"exchange fails", Callback{Code: "c"}, errors.New("token endpoint 500")},
		{"no code", Callback{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &fakeSession{}
			provider := &fakeProvider{err: tt.err}
			gate := newTestGate(newFakeUserRepo())

			out, err := gate.HandleCallback(context.Background(), sess, EntryLogin, provider, tt.cb)

			assert.True(t, errors.Is(err, apperror.ErrAuthProvider))
			assert.Equal(t, StateError, out.State)
			assert.Equal(t, 0, sess.signIns)
		})
	}
}

// Provisioning fails after a successful provider sign-in: the principal
// stays ambient and no sign-out is issued.
func TestHandleCallback_ProvisioningFailureKeepsSession(t *testing.T) {
	repo := newFakeUserRepo()
	repo.setErr = errStoreDown
	gate := newTestGate(repo)
	sess := &fakeSession{}
	provider := &fakeProvider{principal: &auth.Principal{Subject: "u4"}}

	out, err := gate.HandleCallback(context.Background(), sess, EntryRegister, provider, Callback{Code: "c"})

	assert.True(t, errors.Is(err, apperror.ErrProfilePersistence))
	assert.Equal(t, StateError, out.State)
	assert.Empty(t, out.Redirect)
	assert.Equal(t, 0, sess.signOuts)
	_, authed := sess.Current(context.Background())
	assert.True(t, authed)

	// store recovers, the visitor presses the button again
	repo.setErr = nil
	out, err = gate.Start(context.Background(), sess, EntryRegister, "token", provider, "st", "ch")
	require.NoError(t, err)
	assert.Equal(t, "/login?registered=new", out.Redirect)
	assert.Equal(t, 1, provider.exchangeCalls, "retry does not go back to the provider")
	assert.Equal(t, 0, provider.authURLCalls)
	assert.Equal(t, 1, sess.signOuts)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "provisioning", StateProvisioning.String())
	assert.Equal(t, "State(42)", State(42).String())
}
