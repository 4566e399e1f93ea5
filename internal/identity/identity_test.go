package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gyeri/warphunt/internal/domain"
	"github.com/Gyeri/warphunt/internal/store"
)

type fakeRepo struct {
	store.Repository
	users     map[string]*domain.User
	lastSeens int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*domain.User)}
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	return f.users[userID], nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, user *domain.User) error {
	copied := *user
	f.users[user.UserID] = &copied
	return nil
}

func (f *fakeRepo) UpdateLastSeen(_ context.Context, userID string, lastSeen time.Time) error {
	f.lastSeens++
	f.users[userID].LastSeenAt = lastSeen
	return nil
}

func serve(t *testing.T, repo store.Repository, req *http.Request) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	var gotUser, gotSession string
	h := Middleware(repo, true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotSession = SessionIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, gotUser, gotSession
}

func TestMiddlewareIssuesCookieAndCreatesUser(t *testing.T) {
	repo := newFakeRepo()
	rec, userID, sessionID := serve(t, repo, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	if !anonIDPattern.MatchString(userID) {
		t.Fatalf("user id = %q", userID)
	}
	if sessionID != DefaultSessionIDValue {
		t.Fatalf("session id = %q", sessionID)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != AnonCookieName || cookies[0].Value != userID {
		t.Fatalf("cookies = %+v", cookies)
	}
	u := repo.users[userID]
	if u == nil || !strings.HasPrefix(u.Username, "hunter-") {
		t.Fatalf("stored user = %+v", u)
	}
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	repo := newFakeRepo()
	id := "hunter_0123456789abcdef0123456789abcdef"
	repo.users[id] = &domain.User{UserID: id, LastSeenAt: time.Now()}

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})
	req.Header.Set(SessionHeaderName, "tab-7")

	_, userID, sessionID := serve(t, repo, req)
	if userID != id || sessionID != "tab-7" {
		t.Fatalf("identity = %q / %q", userID, sessionID)
	}
	if repo.lastSeens != 0 {
		t.Fatalf("recent user rewrote last_seen %d times", repo.lastSeens)
	}
}

func TestMiddlewareRefreshesStaleLastSeen(t *testing.T) {
	repo := newFakeRepo()
	id := "hunter_ffffffffffffffffffffffffffffffff"
	repo.users[id] = &domain.User{UserID: id, LastSeenAt: time.Now().Add(-time.Hour)}

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})
	serve(t, repo, req)

	if repo.lastSeens != 1 {
		t.Fatalf("UpdateLastSeen called %d times, want 1", repo.lastSeens)
	}
}

func TestMiddlewareRejectsForgedCookie(t *testing.T) {
	repo := newFakeRepo()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "admin"})
	req.Header.Set(SessionHeaderName, "bad session id!")

	_, userID, sessionID := serve(t, repo, req)
	if userID == "admin" || !anonIDPattern.MatchString(userID) {
		t.Fatalf("forged cookie accepted: %q", userID)
	}
	if sessionID != DefaultSessionIDValue {
		t.Fatalf("invalid session id accepted: %q", sessionID)
	}
}
