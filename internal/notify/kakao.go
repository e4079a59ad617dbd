package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/choksense/gosi-watcher/internal/gosi"
)

const (
	defaultKakaoSendEndpoint  = "https://kapi.kakao.com/v2/api/talk/memo/default/send"
	defaultKakaoTokenEndpoint = "https://kauth.kakao.com/oauth/token"

	// fallbackLinkURL replaces announcement URLs the board occasionally
	// emits malformed; the chat API rejects non-http link targets.
	fallbackLinkURL = "https://www.busan.go.kr/news/gosiboard"
)

// KakaoConfig carries the chat credentials and optional endpoint
// overrides for tests.
type KakaoConfig struct {
	RESTAPIKey    string
	AccessToken   string
	RefreshToken  string
	SendEndpoint  string
	TokenEndpoint string
}

// KakaoMessenger delivers notices to the account's self-memo channel.
// An expired access token is refreshed once per send and the send is
// retried exactly once with the new token.
type KakaoMessenger struct {
	cfg         KakaoConfig
	accessToken string
	client      *http.Client
	clock       gosi.Clock
	logger      *zap.Logger
}

// NewKakaoMessenger builds a messenger.
func NewKakaoMessenger(cfg KakaoConfig, clock gosi.Clock, logger *zap.Logger) *KakaoMessenger {
	if cfg.SendEndpoint == "" {
		cfg.SendEndpoint = defaultKakaoSendEndpoint
	}
	if cfg.TokenEndpoint == "" {
		cfg.TokenEndpoint = defaultKakaoTokenEndpoint
	}
	return &KakaoMessenger{
		cfg:         cfg,
		accessToken: cfg.AccessToken,
		client:      &http.Client{Timeout: 30 * time.Second},
		clock:       clock,
		logger:      logger,
	}
}

type kakaoTemplate struct {
	ObjectType string    `json:"object_type"`
	Text       string    `json:"text"`
	Link       kakaoLink `json:"link"`
}

type kakaoLink struct {
	WebURL       string `json:"web_url"`
	MobileWebURL string `json:"mobile_web_url"`
}

type kakaoSendResponse struct {
	ResultCode int `json:"result_code"`
}

// Send delivers the notice. The primary message must succeed; the
// follow-up carrying images 2..N is best effort and never fails the
// delivery.
func (m *KakaoMessenger) Send(ctx context.Context, notice gosi.Notice) error {
	linkURL := notice.Announcement.URL
	if !strings.HasPrefix(linkURL, "http") {
		m.logger.Warn("announcement url malformed; using board fallback",
			zap.String("url", linkURL))
		linkURL = fallbackLinkURL
	}

	if err := m.sendTemplate(ctx, primaryMessage(notice, linkURL, m.clock.Now()), linkURL); err != nil {
		return fmt.Errorf("kakao send: %w", err)
	}

	if len(notice.ImageURLs) > 1 {
		if err := m.sendTemplate(ctx, followUpMessage(notice.ImageURLs), linkURL); err != nil {
			m.logger.Warn("follow-up image message failed", zap.Error(err))
		}
	}
	return nil
}

// sendTemplate posts one text template, refreshing the token once on a
// 401.
func (m *KakaoMessenger) sendTemplate(ctx context.Context, text, linkURL string) error {
	status, err := m.post(ctx, text, linkURL)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		m.logger.Info("access token expired; refreshing")
		if err := m.refreshToken(ctx); err != nil {
			return fmt.Errorf("token refresh: %w", err)
		}
		status, err = m.post(ctx, text, linkURL)
		if err != nil {
			return err
		}
	}
	if status != 0 {
		return fmt.Errorf("send status %d", status)
	}
	return nil
}

// post returns (0, nil) on success, (statusCode, nil) on an HTTP-level
// rejection, or a transport/decoding error.
func (m *KakaoMessenger) post(ctx context.Context, text, linkURL string) (int, error) {
	tpl := kakaoTemplate{
		ObjectType: "text",
		Text:       text,
		Link:       kakaoLink{WebURL: linkURL, MobileWebURL: linkURL},
	}
	tplJSON, err := json.Marshal(tpl)
	if err != nil {
		return 0, fmt.Errorf("encode template: %w", err)
	}

	form := url.Values{}
	form.Set("template_object", string(tplJSON))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.SendEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.accessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read send response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}

	var parsed kakaoSendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("decode send response: %w", err)
	}
	if parsed.ResultCode != 0 {
		return 0, fmt.Errorf("send rejected: result_code %d", parsed.ResultCode)
	}
	return 0, nil
}

func (m *KakaoMessenger) refreshToken(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", m.cfg.RESTAPIKey)
	form.Set("refresh_token", m.cfg.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return fmt.Errorf("token response without access_token")
	}
	m.accessToken = parsed.AccessToken
	return nil
}

// primaryMessage renders the first chat message: headline facts plus
// the first card image when one exists.
func primaryMessage(notice gosi.Notice, linkURL string, now time.Time) string {
	location := "부산"
	if notice.Facts.Location != nil {
		location = *notice.Facts.Location
	}

	var b strings.Builder
	b.WriteString("🚨 새 고시공고 발견!\n\n")
	fmt.Fprintf(&b, "📋 %s\n", notice.Announcement.Title)
	fmt.Fprintf(&b, "📍 %s\n", location)
	fmt.Fprintf(&b, "🏗️ %s\n", notice.Facts.Classification.Label())
	fmt.Fprintf(&b, "📅 %s\n", now.Format("2006년 01월 02일"))

	if extra := factLines(notice.Facts); extra != "" {
		b.WriteString(extra)
	}

	if len(notice.ImageURLs) > 0 {
		fmt.Fprintf(&b, "\n📸 카드뉴스 1/%d:\n%s\n", len(notice.ImageURLs), notice.ImageURLs[0])
		fmt.Fprintf(&b, "\n🔗 부산시청 원문:\n%s\n", linkURL)
	} else {
		fmt.Fprintf(&b, "\n🔗 상세보기:\n%s\n", linkURL)
	}

	b.WriteString("\n💡 부산 재개발 신속 알림")
	return b.String()
}

func factLines(facts gosi.FactRecord) string {
	var b strings.Builder
	if facts.AreaSqm != nil {
		fmt.Fprintf(&b, "📐 구역면적 %.1f㎡\n", *facts.AreaSqm)
	}
	if facts.UnitCount != nil {
		fmt.Fprintf(&b, "🏠 %d세대\n", *facts.UnitCount)
	}
	if facts.BuildingCount != nil {
		fmt.Fprintf(&b, "🏢 %d개동\n", *facts.BuildingCount)
	}
	if facts.Floors != nil {
		fmt.Fprintf(&b, "↕️ 지하 %d층 ~ 지상 %d층\n", facts.Floors.Below, facts.Floors.Above)
	}
	return b.String()
}

// followUpMessage carries images 2..N, one block per image.
func followUpMessage(imageURLs []string) string {
	var b strings.Builder
	b.WriteString("📸 추가 카드뉴스\n")
	for i, u := range imageURLs[1:] {
		fmt.Fprintf(&b, "\n📸 %d/%d:\n%s\n", i+2, len(imageURLs), u)
	}
	b.WriteString("\n💡 이미지 URL을 클릭하면 크게 볼 수 있어요!")
	return b.String()
}
