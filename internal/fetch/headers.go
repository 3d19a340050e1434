package fetch

import "net/http"

// BrowserHeaders returns the header profile of a desktop Edge browser on
// Windows with the given user agent. Some sites only serve complete meta
// tags to requests that look like a real navigation.
func BrowserHeaders(userAgent string) http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
	h.Set("User-Agent", userAgent)
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Cache-Control", "no-cache")
	h.Set("Device-Memory", "8")
	h.Set("Dnt", "1")
	h.Set("Downlink", "10")
	h.Set("Dpr", "1")
	h.Set("Ect", "4g")
	h.Set("Pragma", "no-cache")
	h.Set("Priority", "u=0, i")
	h.Set("Rtt", "250")
	h.Set("Sec-Ch-Device-Memory", "8")
	h.Set("Sec-Ch-Dpr", "1")
	h.Set("Sec-Ch-Ua", `"Not)A;Brand";v="99", "Microsoft Edge";v="127", "Chromium";v="127"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	h.Set("Sec-Ch-Ua-Platform-Version", `"15.0.0"`)
	h.Set("Sec-Ch-Viewport-Width", "1234")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Viewport-Width", "1234")
	return h
}
