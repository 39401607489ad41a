package handler

import (
	"net/http"
	"os"

	"learnlink-server/internal/config"
	"learnlink-server/internal/domain"
	"learnlink-server/pkg/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// noListingFS serves files only; directories read as missing so object keys cannot be enumerated
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(container *config.Container) http.Handler {
	router := mux.NewRouter()
	router.Use(RequestLogger(container.Logger))

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "learnlink-server"})
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if root := container.LocalObjectRoot(); root != "" {
		router.PathPrefix("/objects/").Handler(http.StripPrefix("/objects/", http.FileServer(noListingFS{http.Dir(root)})))
	}

	proxies, invalid := parseTrustedProxies(container.Config.GetTrustedProxies())
	if len(invalid) > 0 {
		container.Logger.Warn("Ignoring unparseable trusted proxies", "entries", invalid)
	}
	limiter := NewRateLimiter(container.Config.GetRateLimitRPS(), container.Config.GetRateLimitBurst(), proxies)
	limited := func(h http.HandlerFunc) http.Handler { return limiter.Middleware(h) }

	userHandler := NewUserHandler(container)
	progressHandler := NewProgressHandler(container)
	preferenceHandler := NewPreferenceHandler(container)
	fileHandler := NewFileHandler(container)
	visualHandler := NewVisualHandler(container)
	driveHandler := NewDriveHandler(container)

	// Users and learning style
	router.HandleFunc("/signup", userHandler.Signup).Methods(http.MethodPost)
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/check-user", userHandler.CheckUser).Methods(http.MethodPost)
	api.HandleFunc("/store-learning-style", userHandler.StoreLearningStyle).Methods(http.MethodPost)
	api.Handle("/predict-learning-style", limited(userHandler.PredictLearningStyle)).Methods(http.MethodPost)
	api.HandleFunc("/user/learning-style", userHandler.LearningStyle).Methods(http.MethodPost)
	api.HandleFunc("/store-quiz-score", userHandler.StoreQuizScore).Methods(http.MethodPost)
	api.HandleFunc("/user/quiz-scores", userHandler.QuizScores).Methods(http.MethodPost)

	// Progress
	api.HandleFunc("/user/login-streak", progressHandler.LoginStreak).Methods(http.MethodPost)
	api.HandleFunc("/user/record-time", progressHandler.RecordTime).Methods(http.MethodPost)
	api.HandleFunc("/user/time-stats", progressHandler.TimeStats).Methods(http.MethodPost)
	api.HandleFunc("/user/current-week-time", progressHandler.CurrentWeekTime).Methods(http.MethodPost)
	api.HandleFunc("/user/weekly-stats", progressHandler.WeeklyStats).Methods(http.MethodPost)
	api.HandleFunc("/leaderboard", progressHandler.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard/update", progressHandler.UpdateLeaderboard).Methods(http.MethodPost)

	// Preferences
	prefs := api.PathPrefix("/users/{userId}").Subrouter()
	prefs.HandleFunc("/preferences/learning-style", preferenceHandler.GetLearningStyle).Methods(http.MethodGet)
	prefs.HandleFunc("/preferences/learning-style", preferenceHandler.SetLearningStyle).Methods(http.MethodPost)
	prefs.HandleFunc("/preferences/subjects", preferenceHandler.GetSubjects).Methods(http.MethodGet)
	prefs.HandleFunc("/preferences/subjects", preferenceHandler.SetSubject).Methods(http.MethodPost)
	prefs.HandleFunc("/preferences/subjects/{subject}", preferenceHandler.DeleteSubject).Methods(http.MethodDelete)
	prefs.HandleFunc("/learning-effectiveness", preferenceHandler.GetEffectiveness).Methods(http.MethodGet)
	prefs.HandleFunc("/learning-effectiveness", preferenceHandler.TrackEffectiveness).Methods(http.MethodPost)

	// Files
	api.HandleFunc("/upload", fileHandler.Upload).Methods(http.MethodPost)
	api.HandleFunc("/files", fileHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/files/user/{userId}", fileHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/files/{id}", fileHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/files/{id}", fileHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/files/{id}", fileHandler.UpdateStyle).Methods(http.MethodPatch)
	api.HandleFunc("/files/{id}/style", fileHandler.UpdateStyle).Methods(http.MethodPatch)
	api.HandleFunc("/files/{id}/url", fileHandler.URL).Methods(http.MethodGet)
	api.HandleFunc("/files/{id}/download", fileHandler.Download).Methods(http.MethodGet)
	api.Handle("/files/{id}/process", limited(fileHandler.Process)).Methods(http.MethodPost)
	api.Handle("/files/{id}/process-reading-writing", limited(fileHandler.ProcessVariant(domain.VariantReadingWriting))).Methods(http.MethodPost)
	api.Handle("/files/{id}/process-auditory", limited(fileHandler.ProcessVariant(domain.VariantAuditory))).Methods(http.MethodPost)
	api.Handle("/files/{id}/process-kinesthetic", limited(fileHandler.ProcessVariant(domain.VariantKinesthetic))).Methods(http.MethodPost)
	api.Handle("/files/{id}/process-visual", limited(fileHandler.ProcessVariant(domain.VariantVisual))).Methods(http.MethodPost)
	api.Handle("/files/{id}/generate-summary", limited(fileHandler.GenerateSummary)).Methods(http.MethodPost)
	api.Handle("/files/{id}/generate-quiz", limited(fileHandler.GenerateQuiz)).Methods(http.MethodPost)
	api.HandleFunc("/download/{id}/{format}", fileHandler.DownloadRendered).Methods(http.MethodGet)

	// Visual helpers
	api.Handle("/image-for-topic", limited(visualHandler.ImageForTopic)).Methods(http.MethodPost)
	api.Handle("/visual-concepts", limited(visualHandler.VisualConcepts)).Methods(http.MethodGet)
	api.Handle("/generate-visuals", limited(visualHandler.GenerateVisuals)).Methods(http.MethodPost)
	api.HandleFunc("/concept-image", visualHandler.ConceptImage).Methods(http.MethodGet)

	// File hosting provider
	router.HandleFunc("/oauth2callback", driveHandler.Callback).Methods(http.MethodGet)
	api.HandleFunc("/drive/auth/url", driveHandler.AuthURL).Methods(http.MethodGet)
	api.HandleFunc("/drive/auth/status", driveHandler.AuthStatus).Methods(http.MethodGet)
	api.HandleFunc("/drive/auth/logout", driveHandler.Logout).Methods(http.MethodPost)
	api.HandleFunc("/drive/upload", driveHandler.Upload).Methods(http.MethodPost)
	api.HandleFunc("/drive/files", driveHandler.Files).Methods(http.MethodGet)
	api.HandleFunc("/drive/download/{id}", driveHandler.Download).Methods(http.MethodGet)
	api.HandleFunc("/drive/delete/{id}", driveHandler.Delete).Methods(http.MethodDelete)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: container.Config.GetAllowedOrigins(),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
