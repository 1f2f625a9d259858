package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jogjaantibully/kanal/internal/apperror"
	"github.com/jogjaantibully/kanal/internal/auth"
	"github.com/jogjaantibully/kanal/internal/captcha"
	"github.com/jogjaantibully/kanal/internal/model"
	"github.com/jogjaantibully/kanal/internal/repository"
	"github.com/jogjaantibully/kanal/internal/session"
)

// Landing routes.
const (
	RouteLogin          = "/login"
	RouteChat           = "/ruang-bincang"
	RouteAdminDashboard = "/dashboard-admin"
)

// Entry identifies which sign-in page a flow started from. Login and
// admin-login behave identically; register provisions the profile and
// then sends the visitor back to log in.
type Entry string

const (
	EntryLogin      Entry = "login"
	EntryAdminLogin Entry = "admin-login"
	EntryRegister   Entry = "register"
)

// ParseEntry validates an entry name taken from a URL or cookie.
func ParseEntry(s string) (Entry, error) {
	switch e := Entry(s); e {
	case EntryLogin, EntryAdminLogin, EntryRegister:
		return e, nil
	}
	return "", apperror.ValidationFailed("entry", fmt.Sprintf("unknown sign-in entry %q", s))
}

// State is where a sign-in attempt stands. Every attempt ends in
// StateRedirecting or StateError; from StateError the page is idle again.
type State int

const (
	StateIdle State = iota
	StateVerifying
	StateAuthenticating
	StateProvisioning
	StateRedirecting
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateVerifying:
		return "verifying"
	case StateAuthenticating:
		return "authenticating"
	case StateProvisioning:
		return "provisioning"
	case StateRedirecting:
		return "redirecting"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is the result of one step of a sign-in attempt.
//
// Redirect is always set when State is StateRedirecting or
// StateAuthenticating (the provider URL). Profile and Created are set once
// provisioning has run.
type Outcome struct {
	State     State
	Redirect  string
	Principal *auth.Principal
	Profile   *model.UserProfile
	Created   bool
}

// Callback is what the identity provider sent back to the redirect URL.
type Callback struct {
	Code  string
	Error string // e.g. "access_denied" when the visitor closed the consent screen
	// Verifier is the PKCE code verifier stored when the attempt started.
	Verifier string
}

// ProfileOptions tunes EnsureProfile for the entry point calling it.
type ProfileOptions struct {
	// RecordEmailVerified snapshots the provider's email-verified flag on
	// the new profile. Only registration does this.
	RecordEmailVerified bool
}

// DecisionKind is what a sign-in page does when it is opened.
type DecisionKind int

const (
	RenderSignIn DecisionKind = iota
	Redirect
)

type Decision struct {
	Kind   DecisionKind
	Target string
}

// GateService is the sign-in gate in front of the portal: it turns a
// provider identity into an application profile and decides where the
// visitor lands.
//
// It owns no state between requests. The ambient principal lives in the
// session.Context the caller passes in; profiles live in the users
// repository.
type GateService struct {
	users   repository.UserRepository
	captcha captcha.Verifier
	logger  *slog.Logger
}

func NewGateService(users repository.UserRepository, verifier captcha.Verifier, logger *slog.Logger) *GateService {
	return &GateService{
		users:   users,
		captcha: verifier,
		logger:  logger,
	}
}

// RouteByRole picks the landing page for a profile. Only an explicit admin
// role reaches the dashboard; a missing profile or any other role value
// goes to the community page.
func RouteByRole(p *model.UserProfile) string {
	if p.IsAdmin() {
		return RouteAdminDashboard
	}
	return RouteChat
}

// OnMount decides what a sign-in page shows when it is opened. A visitor
// who is already signed in is never shown the sign-in button: login pages
// route them by role, the register page sends them to the community page.
//
// A failed profile read still returns RenderSignIn, together with the
// error, so the page can show it inline.
func (g *GateService) OnMount(ctx context.Context, sess session.Context, entry Entry) (Decision, error) {
	p, ok := sess.Current(ctx)
	if !ok {
		return Decision{Kind: RenderSignIn}, nil
	}

	if entry == EntryRegister {
		return Decision{Kind: Redirect, Target: RouteChat}, nil
	}

	profile, err := g.users.GetProfile(ctx, p.Subject)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		profile = nil
	default:
		g.logger.Error("profile read failed on page open",
			slog.String("subject", p.Subject),
			slog.String("error", err.Error()),
		)
		return Decision{Kind: RenderSignIn}, apperror.ProfilePersistence(p.Subject, err)
	}

	return Decision{Kind: Redirect, Target: RouteByRole(profile)}, nil
}

// Start handles a press of the sign-in button.
//
// On register the captcha token is checked first; a missing token fails
// with ErrVerificationIncomplete and the provider is never contacted.
// If a principal is already ambient (a retry after a failed provisioning
// step) the provider round trip is skipped and the flow resumes at
// provisioning. Otherwise the outcome redirects to the provider.
func (g *GateService) Start(
	ctx context.Context,
	sess session.Context,
	entry Entry,
	captchaToken string,
	provider auth.Provider,
	state, codeChallenge string,
) (*Outcome, error) {
	if entry == EntryRegister {
		if err := g.captcha.Verify(ctx, captchaToken); err != nil {
			g.logger.Info("registration refused: verification incomplete")
			return &Outcome{State: StateError}, err
		}
	}

	if p, ok := sess.Current(ctx); ok {
		g.logger.Info("resuming sign-in with ambient principal",
			slog.String("subject", p.Subject),
			slog.String("entry", string(entry)),
		)
		return g.Finish(ctx, sess, entry, p)
	}

	return &Outcome{
		State:    StateAuthenticating,
		Redirect: provider.AuthCodeURL(state, codeChallenge),
	}, nil
}

// CompleteSignIn finishes the provider round trip and makes the returned
// principal ambient.
//
// An error in the callback (the visitor cancelled or denied consent) maps
// to ErrAuthCancelled; a failed code exchange to ErrAuthProvider.
func (g *GateService) CompleteSignIn(ctx context.Context, sess session.Context, provider auth.Provider, cb Callback) (*auth.Principal, error) {
	if cb.Error != "" {
		g.logger.Info("sign-in cancelled at provider",
			slog.String("provider", provider.Name()),
			slog.String("reason", cb.Error),
		)
		return nil, apperror.AuthCancelled(cb.Error)
	}
	if cb.Code == "" {
		return nil, apperror.AuthProvider(provider.Name(), errors.New("callback carried no authorization code"))
	}

	p, err := provider.Exchange(ctx, cb.Code, cb.Verifier)
	if err != nil {
		g.logger.Warn("identity provider exchange failed",
			slog.String("provider", provider.Name()),
			slog.String("error", err.Error()),
		)
		return nil, apperror.AuthProvider(provider.Name(), err)
	}

	if err := sess.SignIn(ctx, p); err != nil {
		return nil, fmt.Errorf("gate: establishing session: %w", err)
	}
	return p, nil
}

// HandleCallback runs the whole second half of a sign-in attempt:
// CompleteSignIn followed by Finish.
func (g *GateService) HandleCallback(
	ctx context.Context,
	sess session.Context,
	entry Entry,
	provider auth.Provider,
	cb Callback,
) (*Outcome, error) {
	p, err := g.CompleteSignIn(ctx, sess, provider, cb)
	if err != nil {
		return &Outcome{State: StateError}, err
	}
	return g.Finish(ctx, sess, entry, p)
}

// Finish provisions the profile for an ambient principal and picks the
// redirect.
//
// Login entries route by role. Register records the email-verified flag,
// signs the visitor out again and sends them to the login page, telling it
// whether the account was new.
//
// When provisioning fails the principal stays signed in: nothing undoes the
// provider sign-in, and the next press of the button resumes here.
func (g *GateService) Finish(ctx context.Context, sess session.Context, entry Entry, p *auth.Principal) (*Outcome, error) {
	opts := ProfileOptions{RecordEmailVerified: entry == EntryRegister}

	profile, created, err := g.EnsureProfile(ctx, p, opts)
	if err != nil {
		return &Outcome{State: StateError, Principal: p}, err
	}

	out := &Outcome{
		State:     StateRedirecting,
		Principal: p,
		Profile:   profile,
		Created:   created,
	}

	if entry != EntryRegister {
		out.Redirect = RouteByRole(profile)
		g.logger.Info("signed in",
			slog.String("subject", p.Subject),
			slog.String("role", string(profile.Role)),
			slog.String("redirect", out.Redirect),
		)
		return out, nil
	}

	if err := sess.SignOut(ctx); err != nil {
		return &Outcome{State: StateError, Principal: p, Profile: profile, Created: created},
			fmt.Errorf("gate: signing out after registration: %w", err)
	}

	registered := "existing"
	if created {
		registered = "new"
	}
	out.Redirect = RouteLogin + "?" + url.Values{"registered": {registered}}.Encode()
	g.logger.Info("registration finished",
		slog.String("subject", p.Subject),
		slog.Bool("created", created),
	)
	return out, nil
}

// EnsureProfile makes sure a profile exists for p and returns it, reporting
// whether this call created it.
//
// An existing profile is returned untouched: no field is refreshed from
// the provider and the role is never rewritten. A new profile gets role
// "user" and placeholder name and picture where the provider sent none.
//
// The read and the write are not atomic. Two first sign-ins racing for the
// same subject both write; SetProfile is last-write-wins by id, so one
// profile survives and both callers read it back.
func (g *GateService) EnsureProfile(ctx context.Context, p *auth.Principal, opts ProfileOptions) (*model.UserProfile, bool, error) {
	existing, err := g.users.GetProfile(ctx, p.Subject)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, g.persistenceFailure(p, "read", err)
	}

	profile := &model.UserProfile{
		ID:             p.Subject,
		Name:           p.DisplayName,
		Email:          p.Email,
		ProfilePicture: p.PhotoURL,
		Role:           model.RoleUser,
	}
	if profile.Name == "" {
		profile.Name = model.DefaultProfileName
	}
	if profile.ProfilePicture == "" {
		profile.ProfilePicture = model.DefaultProfilePicture
	}
	if opts.RecordEmailVerified {
		verified := p.EmailVerified
		profile.EmailVerified = &verified
	}

	if err := g.users.SetProfile(ctx, profile); err != nil {
		return nil, false, g.persistenceFailure(p, "write", err)
	}

	// read back what the store now holds, which may be a concurrent writer's
	stored, err := g.users.GetProfile(ctx, p.Subject)
	if err != nil {
		return nil, false, g.persistenceFailure(p, "re-read", err)
	}

	g.logger.Info("profile created", slog.String("subject", p.Subject))
	return stored, true, nil
}

func (g *GateService) persistenceFailure(p *auth.Principal, step string, err error) error {
	g.logger.Error("profile persistence failed",
		slog.String("subject", p.Subject),
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
	return apperror.ProfilePersistence(p.Subject, err)
}
