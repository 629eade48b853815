package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/itda-project/itda-chat-api/api"
	"github.com/itda-project/itda-chat-api/api/scheduler"
	"github.com/itda-project/itda-chat-api/chat"
	"github.com/itda-project/itda-chat-api/config"
	"github.com/itda-project/itda-chat-api/databases"
	"github.com/itda-project/itda-chat-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Core      *chat.Core
	Presence  *chat.Presence
	Hub       *RoomHub
	Scheduler *scheduler.Scheduler
	dbHelper  databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)

	validate := validator.New()
	rooms := ChatRoom{Core: a.Core, Validate: validate}
	part := Participant{Core: a.Core, Presence: a.Presence, Validate: validate}
	msg := Message{Core: a.Core, Validate: validate}
	settle := Settlement{Core: a.Core, Config: a.Config, Validate: validate}
	cloudinaryHandler := CloudinaryHandler{Core: a.Core}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/ws/rooms", a.Hub.HandleRoomWebSocket)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(30 * time.Second))

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/rooms", api.Middleware(http.HandlerFunc(rooms.CreateRoomHandler))).Methods("POST")
	apiCreate.Handle("/rooms", api.Middleware(http.HandlerFunc(rooms.AllRoomsHandler))).Methods("GET")
	apiCreate.Handle("/rooms/my", api.Middleware(http.HandlerFunc(rooms.MyRoomsHandler))).Methods("GET")
	apiCreate.Handle("/rooms/directory", api.Middleware(http.HandlerFunc(rooms.RoomListHandler))).Methods("GET")
	apiCreate.Handle("/rooms/{room_id}", api.Middleware(http.HandlerFunc(rooms.RoomHandler))).Methods("GET")
	apiCreate.Handle("/rooms/{room_id}", api.Middleware(http.HandlerFunc(rooms.DeactivateRoomHandler))).Methods("DELETE")
	apiCreate.Handle("/rooms/{room_id}/notice", api.Middleware(http.HandlerFunc(rooms.UpdateNoticeHandler))).Methods("PUT")
	apiCreate.Handle("/rooms/{room_id}/invite", api.Middleware(http.HandlerFunc(rooms.InviteHandler))).Methods("POST")
	apiCreate.Handle("/rooms/{room_id}/image", api.Middleware(http.HandlerFunc(cloudinaryHandler.RoomImageHandler))).Methods("PUT")

	apiCreate.Handle("/rooms/{room_id}/join", api.Middleware(http.HandlerFunc(part.JoinRoomHandler))).Methods("POST")
	apiCreate.Handle("/rooms/{room_id}/leave", api.Middleware(http.HandlerFunc(part.LeaveRoomHandler))).Methods("POST")
	apiCreate.Handle("/rooms/{room_id}/read", api.Middleware(http.HandlerFunc(part.MarkReadHandler))).Methods("PUT")
	apiCreate.Handle("/rooms/{room_id}/participants", api.Middleware(http.HandlerFunc(part.ParticipantsHandler))).Methods("GET")
	apiCreate.Handle("/rooms/{room_id}/unread", api.Middleware(http.HandlerFunc(part.UnreadCountHandler))).Methods("GET")
	apiCreate.Handle("/rooms/{room_id}/readers", api.Middleware(http.HandlerFunc(part.ReadersHandler))).Methods("GET")

	apiCreate.Handle("/rooms/{room_id}/messages", api.Middleware(http.HandlerFunc(msg.SendMessageHandler))).Methods("POST")
	apiCreate.Handle("/rooms/{room_id}/messages", api.Middleware(http.HandlerFunc(msg.MessagesHandler))).Methods("GET")
	apiCreate.Handle("/rooms/{room_id}/votes/{vote_id}", api.Middleware(http.HandlerFunc(msg.VoteUpdateHandler))).Methods("PUT")
	apiCreate.Handle("/messages/{message_id}/bill-status", api.Middleware(http.HandlerFunc(msg.BillStatusHandler))).Methods("POST")
	apiCreate.Handle("/messages/{message_id}/checkout", api.Middleware(http.HandlerFunc(settle.CheckoutSessionHandler))).Methods("POST")

	apiCreate.Handle("/generate-signature", api.Middleware(http.HandlerFunc(cloudinaryHandler.GenerateSignature))).Methods("POST")

	// swagger docs hosted at "/"
	r.PathPrefix("/").Handler(http.StripPrefix("/", http.FileServer(http.Dir("./docs/"))))
	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("itda-chat-api has connected to the database")

	// initialize stripe
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		zap.S().Warn("stripe secret key is not set, settlement checkout disabled")
	}
	stripe.Key = stripeKey

	// redis backs presence and scheduler locks
	var rdb *redis.Client
	if a.Config.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
		a.Presence = chat.NewPresence(rdb)
	}

	a.Hub = NewRoomHub(a.Presence)

	// event fan-out: websocket hub always, kafka when brokers are set
	sinks := []chat.EventSink{a.Hub}
	if a.Config.KafkaBrokers != "" {
		sinks = append(sinks, chat.NewKafkaSink(a.Config.KafkaBrokers, a.Config.KafkaTopic))
	}
	notifier := chat.NewNotifier(0, sinks...)

	roomDB := databases.NewChatRoomDatabase(a.dbHelper)
	partDB := databases.NewParticipantDatabase(a.dbHelper)
	msgDB := databases.NewMessageDatabase(a.dbHelper)
	a.Core = chat.NewCore(roomDB, partDB, msgDB, notifier)

	go func() {
		if err := notifier.Run(context.Background()); err != nil {
			zap.S().Errorw("notifier stopped", "error", err)
		}
	}()
	go func() {
		if err := a.Core.Ingestor.Run(context.Background()); err != nil {
			zap.S().Errorw("ingestor stopped", "error", err)
		}
	}()

	a.Scheduler = scheduler.NewScheduler(roomDB, partDB, databases.NewUserDatabase(a.dbHelper), a.Core.Receipts, a.Core.Store, rdb)
	a.Scheduler.Start()

	// initialize api router
	a.initializeRoutes()
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
