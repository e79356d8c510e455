package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow/internal/matching"
	"github.com/sells-group/dealflow/internal/score"
	"github.com/sells-group/dealflow/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serves the matching API: ranked match lists, deal re-scoring, and
outreach decisions. Handlers are thin wrappers over the matching session.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		session, err := initSession(st)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(session, st, cfg.Server.AllowedOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(session *matching.Session, st store.Store, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/deals/{dealID}/matches", func(w http.ResponseWriter, req *http.Request) {
		dealID := chi.URLParam(req, "dealID")
		ranked, err := rankedForDeal(req, st, dealID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, ranked)
	})

	r.Get("/buyers/{buyerID}/contacts", func(w http.ResponseWriter, req *http.Request) {
		contacts, err := st.ListContactsByBuyer(req.Context(), chi.URLParam(req, "buyerID"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, contacts)
	})

	r.Delete("/buyers/{buyerID}", func(w http.ResponseWriter, req *http.Request) {
		if err := st.DeleteBuyer(req.Context(), chi.URLParam(req, "buyerID")); err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	})

	r.Get("/buyers/{buyerID}/transcripts", func(w http.ResponseWriter, req *http.Request) {
		transcripts, err := st.ListTranscriptsByBuyer(req.Context(), chi.URLParam(req, "buyerID"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, transcripts)
	})

	r.Post("/deals/{dealID}/score", func(w http.ResponseWriter, req *http.Request) {
		dealID := chi.URLParam(req, "dealID")
		ranked, err := session.ScoreDeal(req.Context(), dealID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, ranked)
	})

	r.Post("/matches/{buyerID}/{dealID}/decision", func(w http.ResponseWriter, req *http.Request) {
		buyerID := chi.URLParam(req, "buyerID")
		dealID := chi.URLParam(req, "dealID")

		var body struct {
			Decision string `json:"decision"`
			Category string `json:"category"`
			Reason   string `json:"reason"`
			Notes    string `json:"notes"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode decision"))
			return
		}

		var err error
		switch body.Decision {
		case "approve":
			err = session.Approve(req.Context(), buyerID, dealID)
		case "pass":
			err = session.Pass(req.Context(), buyerID, dealID, body.Category, body.Reason, body.Notes)
		case "interested":
			err = session.SetInterested(req.Context(), buyerID, dealID, true)
		case "not_interested":
			err = session.SetInterested(req.Context(), buyerID, dealID, false)
		default:
			writeError(w, http.StatusBadRequest, eris.Errorf("unknown decision: %q", body.Decision))
			return
		}
		if err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
	})

	return r
}

// rankedForDeal re-ranks persisted matches without touching the oracle.
func rankedForDeal(req *http.Request, st store.Store, dealID string) ([]score.RankedMatch, error) {
	ctx := req.Context()
	matches, err := st.ListMatchesByDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	buyers, err := st.ListBuyers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(buyers))
	for i := range buyers {
		names[buyers[i].ID] = buyers[i].DisplayName()
	}

	ranked := make([]score.RankedMatch, 0, len(matches))
	for i := range matches {
		ranked = append(ranked, score.RankedMatch{
			Match:     &matches[i],
			BuyerName: names[matches[i].BuyerID],
		})
	}
	score.Rank(ranked)
	return ranked, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	zap.L().Warn("request failed", zap.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
