package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/anlyetim/TeamPad-sub001/core"
	"github.com/anlyetim/TeamPad-sub001/handlers/api/projects"
	"github.com/anlyetim/TeamPad-sub001/handlers/websocket"
	authMiddleware "github.com/anlyetim/TeamPad-sub001/middleware"
	"github.com/anlyetim/TeamPad-sub001/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

func setupRouter(store core.ProjectStore) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Token", "session", "Origin", "Host", "Connection", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api/v2/projects", func(r chi.Router) {
		r.Post("/", projects.HandleCreate(store))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", projects.HandleGet(store))
			r.Put("/", projects.HandleSave(store))
			r.Post("/join", projects.HandleJoin(store))

			// Message relay, protected by the session token issued on join
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.AuthJWT)
				r.Post("/messages", projects.HandleAppendMessages(store))
				r.Get("/messages", projects.HandleGetMessages(store))
			})
		})
	})

	r.Get("/api/v2/rooms", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, websocket.GetActiveRooms())
	})

	return r
}

func waitForShutdown(ioo *socketio.Server) {
	exit := make(chan struct{})
	signalC := make(chan os.Signal, 1)

	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range signalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	logrus.Info("Shutting down...")
	ioo.Close(nil)
	os.Exit(0)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	authMiddleware.InitAuth()
	store := stores.GetStore()

	r := setupRouter(store)

	ioo := websocket.SetupSocketIO(store)
	r.Mount("/socket.io/", ioo.ServeHandler(nil))

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddress, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(ioo)
}
