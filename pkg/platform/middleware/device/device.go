package device

import (
	"net/http"

	"github.com/mssola/useragent"

	"github.com/TylerGelinas/socure/pkg/requestcontext"
)

// Parse summarizes a User-Agent into browser family, OS and form factor.
// Version numbers are dropped to keep audit fields low-cardinality.
func Parse(userAgent string) requestcontext.Device {
	if userAgent == "" {
		return requestcontext.Device{}
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	return requestcontext.Device{
		Browser:  browser,
		OS:       ua.OS(),
		Platform: ua.Platform(),
		Mobile:   ua.Mobile(),
		Bot:      ua.Bot(),
	}
}

// Middleware parses the User-Agent recorded by the metadata middleware. Register it after metadata.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if ua := requestcontext.UserAgent(ctx); ua != "" {
			ctx = requestcontext.WithDevice(ctx, Parse(ua))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
