package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/choksense/gosi-watcher/internal/gosi"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func testNotice(images ...string) gosi.Notice {
	loc := "부산 수영구 남천동 123-4번지"
	return gosi.Notice{
		Announcement: gosi.Announcement{
			ID:    "1001",
			URL:   "https://www.busan.go.kr/news/gosiboard/view?dataNo=1001",
			Title: "남천동 재개발 정비구역 지정 고시",
		},
		Facts:     gosi.FactRecord{Classification: gosi.ClassRedevelopment, Location: &loc},
		ImageURLs: images,
	}
}

func decodeTemplate(t *testing.T, r *http.Request) kakaoTemplate {
	t.Helper()
	require.NoError(t, r.ParseForm())
	var tpl kakaoTemplate
	require.NoError(t, json.Unmarshal([]byte(r.PostFormValue("template_object")), &tpl))
	return tpl
}

func newTestMessenger(sendURL, tokenURL string) *KakaoMessenger {
	return NewKakaoMessenger(KakaoConfig{
		RESTAPIKey:    "rest-key",
		AccessToken:   "token-1",
		RefreshToken:  "refresh-1",
		SendEndpoint:  sendURL,
		TokenEndpoint: tokenURL,
	}, fixedClock{now: time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)}, zap.NewNop())
}

func TestKakaoSend_SingleMessage(t *testing.T) {
	t.Parallel()

	var templates []kakaoTemplate
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		templates = append(templates, decodeTemplate(t, r))
		w.Write([]byte(`{"result_code":0}`))
	}))
	defer srv.Close()

	m := newTestMessenger(srv.URL, "http://unused")
	require.NoError(t, m.Send(context.Background(), testNotice("https://i.ibb.co/1.png")))

	require.Len(t, templates, 1)
	tpl := templates[0]
	require.Equal(t, "text", tpl.ObjectType)
	require.Contains(t, tpl.Text, "남천동 재개발 정비구역 지정 고시")
	require.Contains(t, tpl.Text, "부산 수영구 남천동 123-4번지")
	require.Contains(t, tpl.Text, "재개발")
	require.Contains(t, tpl.Text, "2026년 08월 28일")
	require.Contains(t, tpl.Text, "카드뉴스 1/1")
	require.Contains(t, tpl.Text, "https://i.ibb.co/1.png")
	require.Equal(t, "https://www.busan.go.kr/news/gosiboard/view?dataNo=1001", tpl.Link.WebURL)
}

func TestKakaoSend_FollowUpCarriesRemainingImages(t *testing.T) {
	t.Parallel()

	var templates []kakaoTemplate
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		templates = append(templates, decodeTemplate(t, r))
		w.Write([]byte(`{"result_code":0}`))
	}))
	defer srv.Close()

	m := newTestMessenger(srv.URL, "http://unused")
	require.NoError(t, m.Send(context.Background(),
		testNotice("https://i.ibb.co/1.png", "https://i.ibb.co/2.png", "https://i.ibb.co/3.png")))

	require.Len(t, templates, 2)
	require.Contains(t, templates[0].Text, "카드뉴스 1/3")
	require.Contains(t, templates[1].Text, "2/3")
	require.Contains(t, templates[1].Text, "https://i.ibb.co/2.png")
	require.Contains(t, templates[1].Text, "3/3")
	require.Contains(t, templates[1].Text, "https://i.ibb.co/3.png")
	require.NotContains(t, strings.SplitN(templates[1].Text, "2/3", 2)[0], "1.png")
}

func TestKakaoSend_RefreshesTokenOn401AndRetriesOnce(t *testing.T) {
	t.Parallel()

	var sendAuths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		sendAuths = append(sendAuths, auth)
		if auth != "Bearer token-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"result_code":0}`))
	}))
	defer srv.Close()

	var refreshCalls int
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostFormValue("grant_type"))
		require.Equal(t, "rest-key", r.PostFormValue("client_id"))
		require.Equal(t, "refresh-1", r.PostFormValue("refresh_token"))
		w.Write([]byte(`{"access_token":"token-2"}`))
	}))
	defer tokenSrv.Close()

	m := newTestMessenger(srv.URL, tokenSrv.URL)
	require.NoError(t, m.Send(context.Background(), testNotice()))

	require.Equal(t, 1, refreshCalls)
	require.Equal(t, []string{"Bearer token-1", "Bearer token-2"}, sendAuths)
}

func TestKakaoSend_SecondUnauthorizedIsFatal(t *testing.T) {
	t.Parallel()

	var sends int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sends++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"access_token":"still-bad"}`))
	}))
	defer tokenSrv.Close()

	m := newTestMessenger(srv.URL, tokenSrv.URL)
	err := m.Send(context.Background(), testNotice())
	require.Error(t, err)
	// The send is retried exactly once after the refresh.
	require.Equal(t, 2, sends)
}

func TestKakaoSend_FollowUpFailureDoesNotFailDelivery(t *testing.T) {
	t.Parallel()

	var sends int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sends++
		if sends == 1 {
			w.Write([]byte(`{"result_code":0}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := newTestMessenger(srv.URL, "http://unused")
	require.NoError(t, m.Send(context.Background(),
		testNotice("https://i.ibb.co/1.png", "https://i.ibb.co/2.png")))
	require.Equal(t, 2, sends)
}

func TestKakaoSend_MalformedAnnouncementURLFallsBack(t *testing.T) {
	t.Parallel()

	var tpl kakaoTemplate
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tpl = decodeTemplate(t, r)
		w.Write([]byte(`{"result_code":0}`))
	}))
	defer srv.Close()

	notice := testNotice()
	notice.Announcement.URL = "javascript:void(0)"

	m := newTestMessenger(srv.URL, "http://unused")
	require.NoError(t, m.Send(context.Background(), notice))
	require.Equal(t, fallbackLinkURL, tpl.Link.WebURL)
}
