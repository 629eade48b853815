package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/itda-project/itda-chat-api/chat"
	"github.com/itda-project/itda-chat-api/databases"
	templates "github.com/itda-project/itda-chat-api/templates/html"
)

// dormantAfter is how long a meetingless room may sit without a message
// before the sweep deactivates it.
const dormantAfter = 30 * 24 * time.Hour

// Scheduler handles periodic background jobs for the chat subsystem
type Scheduler struct {
	cron       *cron.Cron
	RoomDB     databases.ChatRoomDatabase
	PartDB     databases.ParticipantDatabase
	UDB        databases.UserDatabase
	Receipts   *chat.ReceiptEngine
	Store      *chat.RoomStore
	rdb        *redis.Client
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	roomDB databases.ChatRoomDatabase,
	partDB databases.ParticipantDatabase,
	uDB databases.UserDatabase,
	receipts *chat.ReceiptEngine,
	store *chat.RoomStore,
	rdb *redis.Client,
) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		RoomDB:     roomDB,
		PartDB:     partDB,
		UDB:        uDB,
		Receipts:   receipts,
		Store:      store,
		rdb:        rdb,
		instanceID: instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Sweep dormant meetingless rooms daily at 4 AM UTC
	_, err := s.cron.AddFunc("0 4 * * *", s.sweepDormantRooms)
	if err != nil {
		zap.S().Errorw("failed to register dormant room sweep", "error", err)
	}

	// Send unread digest emails daily at 9 AM UTC (6 PM KST)
	_, err = s.cron.AddFunc("0 9 * * *", s.sendUnreadDigests)
	if err != nil {
		zap.S().Errorw("failed to register unread digest job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Chat scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Chat scheduler stopped")
}

// tryAcquireLock takes a Redis lock so a job runs on one instance only.
// Returns true when this instance holds the lock.
func (s *Scheduler) tryAcquireLock(ctx context.Context, name string, ttl time.Duration) bool {
	if s.rdb == nil {
		return true
	}
	acquired, err := s.rdb.SetNX(ctx, "scheduler:lock:"+name, s.instanceID, ttl).Result()
	if err != nil {
		zap.S().Errorw("failed to acquire scheduler lock", "job", name, "error", err)
		return false
	}
	return acquired
}

func (s *Scheduler) releaseLock(ctx context.Context, name string) {
	if s.rdb == nil {
		return
	}
	holder, err := s.rdb.Get(ctx, "scheduler:lock:"+name).Result()
	if err != nil || holder != s.instanceID {
		return
	}
	s.rdb.Del(ctx, "scheduler:lock:"+name)
}

// sweepDormantRooms deactivates meetingless rooms with no message
// activity for dormantAfter. Rooms tied to a meeting are left alone,
// their lifecycle follows the meeting.
func (s *Scheduler) sweepDormantRooms() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if !s.tryAcquireLock(ctx, "dormant_room_sweep", 10*time.Minute) {
		zap.S().Debug("Dormant room sweep already running on another instance, skipping")
		return
	}
	defer s.releaseLock(ctx, "dormant_room_sweep")

	cutoff := time.Now().Add(-dormantAfter)
	zap.S().Infow("Running dormant room sweep", "instance", s.instanceID, "cutoff", cutoff)

	filter := bson.M{
		"isActive":  true,
		"meetingId": nil,
		"$or": []bson.M{
			{"lastMessageAt": bson.M{"$lt": primitive.NewDateTimeFromTime(cutoff)}},
			{"lastMessageAt": nil, "createdAt": bson.M{"$lt": primitive.NewDateTimeFromTime(cutoff)}},
		},
	}

	rooms, err := s.RoomDB.Find(ctx, filter)
	if err != nil {
		zap.S().Errorw("failed to find dormant rooms", "error", err)
		return
	}

	swept := 0
	for _, room := range rooms {
		if err := s.Store.Deactivate(ctx, room.ID, "system"); err != nil {
			zap.S().Errorw("failed to deactivate dormant room", "error", err, "roomId", room.ID.Hex())
			continue
		}
		swept++
	}

	zap.S().Infow("Dormant room sweep complete", "checked", len(rooms), "deactivated", swept)
}

// sendUnreadDigests emails every member who has unread chat activity a
// per-room summary of what they missed.
func (s *Scheduler) sendUnreadDigests() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if !s.tryAcquireLock(ctx, "unread_digest_job", 15*time.Minute) {
		zap.S().Debug("Unread digest job already running on another instance, skipping")
		return
	}
	defer s.releaseLock(ctx, "unread_digest_job")

	zap.S().Infow("Running unread digest job", "instance", s.instanceID)

	rooms, err := s.RoomDB.Find(ctx, bson.M{"isActive": true})
	if err != nil {
		zap.S().Errorw("failed to find active rooms", "error", err)
		return
	}

	// Collect per-user digest lines across every room they belong to
	digests := make(map[string][]templates.UnreadRoomLine)
	for _, room := range rooms {
		participants, err := s.PartDB.Find(ctx, bson.M{"roomId": room.ID})
		if err != nil {
			zap.S().Errorw("failed to list participants", "error", err, "roomId", room.ID.Hex())
			continue
		}
		for _, p := range participants {
			unread, err := s.Receipts.UnreadCount(ctx, room.ID, p.UserID)
			if err != nil || unread == 0 {
				continue
			}
			digests[p.UserID] = append(digests[p.UserID], templates.UnreadRoomLine{
				RoomName:    room.RoomName,
				UnreadCount: unread,
				LastPreview: room.LastMessage,
			})
		}
	}

	sent := 0
	for userID, lines := range digests {
		email, nickname := s.getUserEmail(ctx, userID)
		if email == "" {
			continue
		}

		subject := "You have unread messages - Itda"
		htmlContent := templates.RenderUnreadDigestEmail(nickname, lines)
		plainText := fmt.Sprintf("You have unread messages in %d chat rooms. Open Itda to catch up.", len(lines))

		if err := s.sendEmail(email, nickname, subject, htmlContent, plainText); err != nil {
			zap.S().Errorw("failed to send unread digest email", "error", err, "userId", userID)
			continue
		}
		sent++
	}

	zap.S().Infow("Unread digest job complete", "roomsChecked", len(rooms), "digestsSent", sent)
}

func (s *Scheduler) sendEmail(toEmail, toName, subject, htmlContent, plainText string) error {
	from := mail.NewEmail("Itda", "no-reply@itda-meet.com")
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
	return nil
}

func (s *Scheduler) getUserEmail(ctx context.Context, userID string) (email, name string) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return "", ""
	}
	user, err := s.UDB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil || user.Details.Email == "" {
		return "", ""
	}
	name = user.Details.Nickname
	if name == "" {
		name = user.Details.Username
	}
	return user.Details.Email, name
}
