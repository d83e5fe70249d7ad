package devicecookie_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/devicecookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const key = "0123456789abcdef0123456789abcdef"

func TestMiddleware_IssuesAndReuses(t *testing.T) {
	m, err := devicecookie.New(key, "", false, zap.NewNop())
	require.NoError(t, err)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = devicecookie.ID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	first := seen
	require.NotEmpty(t, first)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, devicecookie.DefaultName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, first, seen)
	assert.Empty(t, rec.Result().Cookies(), "valid cookie is not reissued")
}

func TestRead_RejectsForgedCookie(t *testing.T) {
	m, err := devicecookie.New(key, "", false, zap.NewNop())
	require.NoError(t, err)
	other, err := devicecookie.New("ffffffffffffffffffffffffffffffff", "", false, zap.NewNop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	_, err = other.Issue(rec)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	_, ok := m.Read(req)
	assert.False(t, ok)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: devicecookie.DefaultName, Value: "plain-id"})
	_, ok = m.Read(req)
	assert.False(t, ok)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := devicecookie.New("", "", false, zap.NewNop())
	assert.Error(t, err)
}
