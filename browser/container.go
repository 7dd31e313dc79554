package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stsc/compileerr"
)

// resetCSS is injected ahead of the project's own stylesheet so container
// markup renders the same regardless of the page's default user-agent
// styles (margins, default font metrics, etc).
const resetCSS = `* { margin: 0; padding: 0; box-sizing: border-box; } html, body { background: transparent; }`

// RasterizeContainer renders a Container's inner HTML + the project CSS
// into a transparent PNG at exactly (width, height), returning the
// destination path. If a file already exists at that path it is reused
// without opening a browser page (spec.md §4.5 caching discipline); the
// caller is still responsible for recording the key as touched either way.
func RasterizeContainer(session *BrowserSession, cacheDir, key, innerHTML, css string, width, height int) (string, error) {
	pngPath := filepath.Join(cacheDir, key+".png")
	if _, err := os.Stat(pngPath); err == nil {
		return pngPath, nil
	}
	if err := EnsureDir(cacheDir); err != nil {
		return "", fmt.Errorf("creating cache dir: %v", err)
	}

	doc := fmt.Sprintf(`<!DOCTYPE html><html><head><meta charset="utf-8"><style>%s</style><style>%s</style></head><body>%s</body></html>`,
		resetCSS, css, innerHTML)

	page, err := session.NewPage(width, height, 30*time.Second)
	if err != nil {
		return "", &compileerr.ContainerRenderFailed{Message: err.Error()}
	}
	defer page.Close()

	if err := SetTransparentBackground(page); err != nil {
		return "", &compileerr.ContainerRenderFailed{Message: "setting transparent background: " + err.Error()}
	}

	dataURL := "data:text/html;charset=utf-8," + urlEscapeHTML(doc)
	if err := NavigateAndWaitLoad(page, dataURL); err != nil {
		return "", &compileerr.ContainerRenderFailed{Message: err.Error()}
	}
	if err := WaitNetworkIdle(page, 500*time.Millisecond); err != nil {
		return "", &compileerr.ContainerRenderFailed{Message: "waiting for network idle: " + err.Error()}
	}

	png, err := ScreenshotTransparentClip(page, width, height)
	if err != nil {
		return "", &compileerr.ContainerRenderFailed{Message: "screenshot: " + err.Error()}
	}
	if err := os.WriteFile(pngPath, png, 0644); err != nil {
		return "", fmt.Errorf("writing container PNG: %v", err)
	}
	return pngPath, nil
}

// urlEscapeHTML percent-encodes the characters that would otherwise break
// a data: URL (the '#' and '%' that appear routinely in CSS/HTML, plus
// newlines); other whitespace is left as is.
func urlEscapeHTML(s string) string {
	out := make([]byte, 0, len(s)+16)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '#':
			out = append(out, '%', '2', '3')
		case '%':
			out = append(out, '%', '2', '5')
		case '\n':
			out = append(out, '%', '0', 'A')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
