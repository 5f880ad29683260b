package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sky-gradient/config"
	"sky-gradient/internal/api"
	"sky-gradient/internal/daytime"
	"sky-gradient/internal/mqtt"
	"sky-gradient/internal/session"
	"sky-gradient/internal/sky"
	"sky-gradient/internal/storage"
	"sky-gradient/internal/sun"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
	log        = logrus.New()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sky-gradient",
		Short: "Sky colour gradient for the time of day",
		Long:  "Renders a sky gradient that follows the day's sunrise, sunset and twilight times",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(gradientCmd())
	rootCmd.AddCommand(timingsCmd())
	rootCmd.AddCommand(testCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *time.Location, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	loc, err := cfg.Location.TimeLocation()
	if err != nil {
		return nil, nil, err
	}
	return cfg, loc, nil
}

func newProvider(cfg *config.Config, loc *time.Location) (sun.Provider, error) {
	return sun.NewProvider(sun.ProviderConfig{
		Name:      cfg.Sun.Provider,
		BaseURL:   cfg.Sun.BaseURL,
		Timeout:   cfg.Sun.Timeout,
		Latitude:  cfg.Location.Latitude,
		Longitude: cfg.Location.Longitude,
		Location:  loc,
	})
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the sky service",
		Long:  "Start the sky clock, API server, MQTT publisher and history store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loc, err := loadConfig()
			if err != nil {
				return err
			}

			provider, err := newProvider(cfg, loc)
			if err != nil {
				return err
			}
			engine, err := sky.NewEngine(cfg.Sky.Blend)
			if err != nil {
				return err
			}

			sess := session.New(session.Config{
				Provider:     provider,
				Engine:       engine,
				Location:     loc,
				Follow:       cfg.Session.Follow,
				TickInterval: cfg.Session.TickInterval,
				Logger:       log,
			})

			var history api.History
			if cfg.Database.Enabled {
				db, err := storage.NewDatabase(cfg.Database.Path)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer db.Close()
				log.WithField("path", cfg.Database.Path).Info("Database opened")

				if err := db.CleanOldSamples(cfg.Database.Retention); err != nil {
					log.WithError(err).Warn("Failed to clean old samples")
				}
				sess.AddRenderer(db)
				history = db
			}

			publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
				Broker:      cfg.MQTT.Broker,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				Enabled:     cfg.MQTT.Enabled,
				Logger:      log,
			})
			if err != nil {
				log.WithError(err).Warn("MQTT connection failed")
			} else {
				defer publisher.Close()
				if cfg.MQTT.Enabled {
					if err := publisher.PublishHomeAssistantDiscovery(); err != nil {
						log.WithError(err).Warn("Home Assistant discovery failed")
					}
					sess.AddRenderer(publisher)
				}
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			if res := sess.Init(ctx); !res.OK() {
				log.WithError(res.Err).Warn("Starting without solar timings")
			}

			go func() {
				if err := sess.Start(ctx); err != nil {
					log.WithError(err).Error("Sky clock error")
				}
			}()

			var server *api.Server
			if cfg.API.Enabled {
				server = api.NewServer(api.ServerConfig{
					Port:        cfg.API.Port,
					Session:     sess,
					History:     history,
					RateLimit:   cfg.API.RateLimit,
					RateBurst:   cfg.API.RateBurst,
					CORSOrigins: cfg.API.CORSOrigins,
					Logger:      log,
				})

				go func() {
					if err := server.Start(); err != nil && err != http.ErrServerClosed {
						log.WithError(err).Error("API server error")
					}
				}()
			}

			log.Info("Sky gradient started. Press Ctrl+C to stop.")

			<-sigChan
			log.Info("Shutting down...")
			cancel()

			if server != nil {
				shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				if err := server.Stop(shutdownCtx); err != nil {
					log.WithError(err).Warn("API server shutdown failed")
				}
			}

			return nil
		},
	}
}

func gradientCmd() *cobra.Command {
	var (
		at      string
		cssOnly bool
	)

	cmd := &cobra.Command{
		Use:   "gradient",
		Short: "Print the sky gradient once",
		Long:  "Fetch today's solar timings and print the gradient for a time of day",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loc, err := loadConfig()
			if err != nil {
				return err
			}

			m := daytime.Now(loc)
			if at != "" {
				if m, err = daytime.ParseClock(at); err != nil {
					return err
				}
			}

			provider, err := newProvider(cfg, loc)
			if err != nil {
				return err
			}
			engine, err := sky.NewEngine(cfg.Sky.Blend)
			if err != nil {
				return err
			}

			res := sun.Load(cmd.Context(), provider, time.Now().In(loc), log)
			if !res.OK() {
				return fmt.Errorf("failed to load solar timings: %w", res.Err)
			}

			g, err := engine.ComputeGradient(m, res.Timings)
			if err != nil {
				return err
			}

			if cssOnly {
				fmt.Println(g.CSS())
				return nil
			}
			output, _ := json.MarshalIndent(g, "", "  ")
			fmt.Println(string(output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&at, "time", "t", "", "time of day as minutes or HH:MM (default now)")
	cmd.Flags().BoolVar(&cssOnly, "css", false, "print only the CSS background value")
	return cmd
}

func timingsCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "timings",
		Short: "Print the day's solar timings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loc, err := loadConfig()
			if err != nil {
				return err
			}

			day := time.Now().In(loc)
			if date != "" {
				if day, err = time.ParseInLocation("2006-01-02", date, loc); err != nil {
					return fmt.Errorf("invalid date %q: %w", date, err)
				}
			}

			provider, err := newProvider(cfg, loc)
			if err != nil {
				return err
			}

			timings, err := provider.Get(cmd.Context(), day)
			if err != nil {
				return fmt.Errorf("failed to fetch timings: %w", err)
			}

			output, _ := json.MarshalIndent(timings, "", "  ")
			fmt.Println(string(output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "date as YYYY-MM-DD (default today)")
	return cmd
}

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test the solar timings provider",
		Long:  "Fetch today's timings once and report whether they are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loc, err := loadConfig()
			if err != nil {
				return err
			}

			provider, err := newProvider(cfg, loc)
			if err != nil {
				return err
			}

			fmt.Printf("Testing %s provider for %.4f, %.4f (%s)...\n",
				provider.Name(), cfg.Location.Latitude, cfg.Location.Longitude, loc)

			timings, err := provider.Get(cmd.Context(), time.Now().In(loc))
			if err != nil {
				fmt.Printf("Provider FAILED: %v\n", err)
				return err
			}

			fmt.Println("Provider SUCCESS!")
			fmt.Printf("\nSolar Timings:\n")
			fmt.Printf("  First Light: %s\n", timings.FirstLight)
			fmt.Printf("  Dawn:        %s\n", timings.Dawn)
			fmt.Printf("  Sunrise:     %s\n", timings.Sunrise)
			fmt.Printf("  Solar Noon:  %s\n", timings.SolarNoon)
			fmt.Printf("  Sunset:      %s\n", timings.Sunset)
			fmt.Printf("  Dusk:        %s\n", timings.Dusk)
			fmt.Printf("  Last Light:  %s\n", timings.LastLight)

			kf := sky.BuildKeyframes(timings)
			if !kf.Monotonic() {
				fmt.Println("\nWarning: keyframes are not in time order; some times will not render")
			}
			return nil
		},
	}
}
