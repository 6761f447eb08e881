package main

import (
	"context"
	"log"
	"time"

	"focusonmeal/config"
	"focusonmeal/routes"
	"focusonmeal/services"
	"focusonmeal/utils"

	"github.com/spf13/cobra"
)

var (
	servePort string
	serveAPI  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web front-end",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if servePort != "" {
			cfg.Port = servePort
		}
		if serveAPI != "" {
			cfg.APIBaseURL = serveAPI
		}

		var store services.SessionStore
		if cfg.UseDatabase() {
			db, err := config.InitDB(cfg)
			if err != nil {
				return err
			}
			store = services.NewGormSessionStore(db)
			log.Printf("sessions: postgres %s/%s", cfg.DBHost, cfg.DBName)
		} else {
			store = services.NewMemorySessionStore()
			log.Printf("sessions: in memory (DB_HOST not set)")
		}

		api := services.NewAPIClient(cfg.APIBaseURL, cfg.APITimeout)
		sessions := services.NewSessionService(store, api)

		rules, err := services.DefaultProxyRules(cfg.APIBaseURL, cfg.ReactDevURL)
		if err != nil {
			return err
		}

		widgets := services.NewWidgetRegistry(func() *services.MealChatWidget {
			return services.NewMealChatWidget(api)
		})
		go sweepSessions(cmd.Context(), sessions, widgets, sweepInterval)

		r, err := routes.SetupRouter(routes.Dependencies{
			SessionSecret: []byte(cfg.SessionSecret),
			SecureCookies: cfg.SecureCookies,
			CORSOrigins:   cfg.CORSOrigins,
			Sessions:      sessions,
			Alerts:        services.NewAlertViewService(api),
			Deletion:      services.NewAccountDeletionService(api, sessions),
			Widgets:       widgets,
			RT:            services.NewRealtimeHub(),
			Proxy:         services.NewDevProxy(rules),
		})
		if err != nil {
			return err
		}

		log.Printf("FocusOnMeal front-end listening on :%s (api %s)", cfg.Port, cfg.APIBaseURL)
		return r.Run(":" + cfg.Port)
	},
}

const sweepInterval = 10 * time.Minute

// sweepSessions drops expired sessions and idle widgets until ctx is done.
func sweepSessions(ctx context.Context, sessions *services.SessionService, widgets *services.WidgetRegistry, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := sessions.Sweep(ctx)
			if err != nil {
				log.Printf("sessions: sweep failed: %v", err)
			}
			w := widgets.Sweep(time.Now().Add(-utils.SessionTTL()))
			if n > 0 || w > 0 {
				log.Printf("sessions: swept %d sessions, %d widgets", n, w)
			}
		}
	}
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides PORT)")
	serveCmd.Flags().StringVar(&serveAPI, "api", "", "Backend base URL (overrides API_BASE_URL)")
	rootCmd.AddCommand(serveCmd)
}
