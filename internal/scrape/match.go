package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

// MatchVisit is the outcome of opening an HLTV match page.
type MatchVisit struct {
	FinalURL string
	// Verified is set when a verification challenge was shown and confirmed.
	Verified bool
	// Download is set when the page redirected to a demo download.
	Download bool
}

// VisitMatch opens a match page with the cookies in cookieFile. When the
// site redirects to a verification challenge, confirm is called so the
// operator can solve it in the (visible) browser; the resulting cookies are
// then saved back to cookieFile.
func (b *Browser) VisitMatch(ctx context.Context, url, cookieFile string, confirm func() error) (MatchVisit, error) {
	var v MatchVisit

	page, err := b.NewPage()
	if err != nil {
		return v, err
	}
	defer page.Close()

	cookies, skipped, err := LoadCookies(cookieFile)
	if err != nil {
		return v, err
	}
	if skipped > 0 {
		b.logger.Warn("skipped invalid cookies", zap.Int("count", skipped))
	}
	if len(cookies) == 0 {
		b.logger.Info("no cookies loaded, proceeding without cookies", zap.String("file", cookieFile))
	} else if err := SetCookies(page, cookies); err != nil {
		return v, fmt.Errorf("set cookies: %w", err)
	}

	if err := b.Navigate(ctx, page, url); err != nil {
		return v, err
	}
	if v.FinalURL, err = currentURL(page); err != nil {
		return v, err
	}

	if strings.Contains(strings.ToLower(v.FinalURL), "verify") {
		b.logger.Info("manual verification required, complete it in the browser")
		if err := confirm(); err != nil {
			return v, err
		}
		v.Verified = true
		saved, err := PageCookies(page)
		if err != nil {
			return v, err
		}
		if err := SaveCookies(cookieFile, saved); err != nil {
			return v, fmt.Errorf("save cookies: %w", err)
		}
		b.logger.Info("cookies saved", zap.String("file", cookieFile), zap.Int("count", len(saved)))
		if v.FinalURL, err = currentURL(page); err != nil {
			return v, err
		}
	}

	v.Download = strings.Contains(v.FinalURL, "download")
	return v, nil
}

func currentURL(p *rod.Page) (string, error) {
	info, err := p.Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}
