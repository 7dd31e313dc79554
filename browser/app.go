package browser

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"

	"stsc/compileerr"
)

// AppReadyTimeout is the hard limit spec.md §4.5 sets on polling an App's
// window.__stsRenderComplete flag before failing with AppRenderTimeout.
const AppReadyTimeout = 5000 * time.Millisecond

// RasterizeApp renders an App's built SPA (an index.html served from
// sourceDir) into a transparent PNG at exactly (width, height). params is
// forwarded as URL query parameters on the file:// navigation. If a file
// already exists at the computed path it is reused.
func RasterizeApp(session *BrowserSession, cacheDir, key, sourceDir string, params map[string]string, width, height int, appID string) (string, error) {
	pngPath := filepath.Join(cacheDir, key+".png")
	if _, err := os.Stat(pngPath); err == nil {
		return pngPath, nil
	}
	if err := EnsureDir(cacheDir); err != nil {
		return "", fmt.Errorf("creating cache dir: %v", err)
	}

	indexPath, err := filepath.Abs(filepath.Join(sourceDir, "index.html"))
	if err != nil {
		return "", fmt.Errorf("resolving app index.html: %v", err)
	}
	if _, err := os.Stat(indexPath); err != nil {
		return "", fmt.Errorf("app index.html not found at %s: %v", indexPath, err)
	}

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	navURL := "file://" + indexPath
	if encoded := q.Encode(); encoded != "" {
		navURL += "?" + encoded
	}

	page, err := session.NewPage(width, height, 30*time.Second)
	if err != nil {
		return "", fmt.Errorf("creating app page: %v", err)
	}
	defer page.Close()

	if err := SetTransparentBackground(page); err != nil {
		return "", fmt.Errorf("setting transparent background: %v", err)
	}

	// Inject the readiness flag as false before navigation so a race
	// between page load and our first poll can never read a stale true
	// from a previous document.
	_, err = page.EvalOnNewDocument(`window.__stsRenderComplete = false;`)
	if err != nil {
		return "", fmt.Errorf("injecting readiness flag: %v", err)
	}

	if err := NavigateAndWaitLoad(page, navURL); err != nil {
		return "", fmt.Errorf("navigating to app: %v", err)
	}

	if err := waitForRenderComplete(page); err != nil {
		if _, ok := err.(*compileerr.AppRenderTimeout); !ok {
			return "", err
		}
		return "", &compileerr.AppRenderTimeout{AppID: appID}
	}

	png, err := ScreenshotTransparentClip(page, width, height)
	if err != nil {
		return "", fmt.Errorf("app screenshot: %v", err)
	}
	if err := os.WriteFile(pngPath, png, 0644); err != nil {
		return "", fmt.Errorf("writing app PNG: %v", err)
	}
	return pngPath, nil
}

// waitForRenderComplete polls window.__stsRenderComplete for truthiness,
// failing with AppRenderTimeout once AppReadyTimeout elapses.
func waitForRenderComplete(page *rod.Page) error {
	ctx, cancel := context.WithTimeout(context.Background(), AppReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return &compileerr.AppRenderTimeout{}
		case <-ticker.C:
			result, err := page.Eval(`window.__stsRenderComplete === true`)
			if err != nil {
				continue
			}
			if result.Value.Bool() {
				return nil
			}
		}
	}
}
