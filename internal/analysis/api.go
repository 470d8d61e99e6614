package analysis

import (
	"net/http"

	"ytdlpro/handler"
	"ytdlpro/handler/platforms"
	"ytdlpro/internal/domain"
	"ytdlpro/internal/settings"
	"ytdlpro/observability"
)

// APIDeps are the collaborators of the cloud API.
type APIDeps struct {
	Analyzer domain.Analyzer
	Settings settings.Store
	Limits   SettingsLimits
	Version  string
	Platform string
	Provider observability.Provider
}

// NewRouter wires the four functions behind the factory's middleware.
func NewRouter(factory *handler.Factory, deps APIDeps) *platforms.Router {
	logger := deps.Provider.Logger("analysis")
	metrics := deps.Provider.Metrics("analysis")

	return platforms.NewRouter(
		platforms.Function{
			Handler: factory.Create(NewHealthWorker(deps.Version, deps.Platform)),
			Methods: []string{http.MethodGet},
			Raw:     true,
		},
		platforms.Function{
			Handler: factory.Create(NewDownloadWorker(domain.KindPlaylist, deps.Analyzer, logger, metrics)),
			Methods: []string{http.MethodPost},
		},
		platforms.Function{
			Handler: factory.Create(NewDownloadWorker(domain.KindVideo, deps.Analyzer, logger, metrics)),
			Methods: []string{http.MethodPost},
		},
		platforms.Function{
			Handler: factory.Create(NewSettingsWorker(deps.Settings, deps.Limits)),
			Methods: []string{http.MethodGet},
		},
	)
}
