package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log"
	"strings"
	"text/template"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"

	"rentaudit/internal/config"
	"rentaudit/internal/email"
	"rentaudit/internal/models"
	"rentaudit/internal/services"
	"rentaudit/internal/storage"
	"rentaudit/internal/utils"
)

// TaskType defines the type of a background task.
const (
	TypeListingStatusNotify = "listing:status:notify"
	TypeImageProcess        = "image:process"
	TypeAuditReconcile      = "audit:reconcile"
)

// Queue names and their priorities on the worker.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueImages   = "images"
	QueueLow      = "low"
)

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// TaskEnqueuer is the part of asynq.Client the queue needs.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue turns moderation events into background tasks.
type Queue struct {
	client TaskEnqueuer
}

var _ services.ITaskQueue = (*Queue)(nil)

func NewQueue(client TaskEnqueuer) *Queue {
	return &Queue{client: client}
}

// StatusNotifyPayload carries what the notification email needs, so the
// worker does not have to read the listing back.
type StatusNotifyPayload struct {
	ListingID    string               `json:"listing_id"`
	ListingTitle string               `json:"listing_title"`
	UserName     string               `json:"user_name"`
	UserEmail    string               `json:"user_email"`
	Action       models.AuditAction   `json:"action"`
	NewStatus    models.ListingStatus `json:"new_status"`
	ChangedAt    time.Time            `json:"changed_at"`
}

func (q *Queue) EnqueueStatusNotification(ctx context.Context, listing *models.Listing, entry *models.AuditLog) error {
	payload, err := json.Marshal(StatusNotifyPayload{
		ListingID:    listing.ID.String(),
		ListingTitle: listing.Title,
		UserName:     listing.UserName,
		UserEmail:    listing.UserEmail,
		Action:       entry.Action,
		NewStatus:    entry.NewStatus,
		ChangedAt:    entry.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal status notification payload: %w", err)
	}
	task := asynq.NewTask(TypeListingStatusNotify, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(5))
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TypeListingStatusNotify, err)
	}
	return nil
}

// ImageTaskPayload points at one uploaded listing image.
type ImageTaskPayload struct {
	ImageURL  string `json:"image_url"`
	ListingID string `json:"listing_id"`
}

func (q *Queue) EnqueueImageProcess(ctx context.Context, listingID utils.SixID, imageURL string) error {
	payload, err := json.Marshal(ImageTaskPayload{ImageURL: imageURL, ListingID: listingID.String()})
	if err != nil {
		return fmt.Errorf("failed to marshal image task payload: %w", err)
	}
	task := asynq.NewTask(TypeImageProcess, payload, asynq.Queue(QueueImages))
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", TypeImageProcess, err)
	}
	log.Printf("Enqueued image processing task ID %s for %s, listing %s", info.ID, imageURL, listingID)
	return nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
type TaskProcessor struct {
	cfg          *config.Config
	emailSender  email.Sender
	storage      storage.IS3Storage
	auditService services.IAuditService
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	storageService storage.IS3Storage,
	auditService services.IAuditService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:          cfg,
		emailSender:  emailSender,
		storage:      storageService,
		auditService: auditService,
	}
}

// Queue sets served by the two worker flavours. Image processing is CPU
// heavy and can be scaled separately.
var (
	BackgroundQueues = map[string]int{QueueCritical: 6, QueueDefault: 3, QueueLow: 1}
	ImageQueues      = map[string]int{QueueImages: 1}
)

// SetupServer configures a worker for the given queues and registers every
// task handler. The caller runs the server with the returned mux.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, queues map[string]int) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("WARN: task %s failed: %v (payload: %s)", task.Type(), err, task.Payload())
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeListingStatusNotify, processor.HandleListingStatusNotifyTask)
	mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
	mux.HandleFunc(TypeAuditReconcile, processor.HandleAuditReconcileTask)
	return srv, mux
}

// NewScheduler registers the periodic audit reconciliation.
func NewScheduler(rdb *redis.Client, cfg *config.Config) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(rdb), &asynq.SchedulerOpts{
		Location: time.UTC,
	})
	entryID, err := scheduler.Register(cfg.AuditReconcileSchedule, asynq.NewTask(TypeAuditReconcile, nil),
		asynq.Queue(QueueLow), asynq.MaxRetry(1))
	if err != nil {
		return nil, fmt.Errorf("failed to schedule %s with %q: %w", TypeAuditReconcile, cfg.AuditReconcileSchedule, err)
	}
	log.Printf("Scheduled %s (%s), entry %s", TypeAuditReconcile, cfg.AuditReconcileSchedule, entryID)
	return scheduler, nil
}

// --- Task Handlers ---

var (
	subjectTemplate = template.Must(template.New("subject").Parse(
		`Your listing "{{.ListingTitle}}" was {{.NewStatus}}`))
	bodyTemplate = template.Must(template.New("body").Parse(`Hello {{.UserName}},

Your listing "{{.ListingTitle}}" was {{.NewStatus}} on {{.ChangedAt.Format "2 Jan 2006 15:04 MST"}}.
{{if eq .NewStatus "approved"}}It is now visible to everyone browsing listings.
{{else}}It is not visible to the public. Reply to this email if you think this was a mistake.
{{end}}
Listing reference: {{.ListingID}}
`))
)

// BuildMessage renders a plain-text RFC 822 message.
func BuildMessage(from, to, subject, body string, date time.Time) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(sb.String())
}

// HandleListingStatusNotifyTask emails the submitter about an approve/reject.
func (p *TaskProcessor) HandleListingStatusNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload StatusNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal status notification payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.UserEmail == "" {
		log.Printf("WARN: listing %s has no submitter email, skipping notification", payload.ListingID)
		return nil
	}

	var subject, body bytes.Buffer
	if err := subjectTemplate.Execute(&subject, payload); err != nil {
		return fmt.Errorf("failed to render subject: %v: %w", err, asynq.SkipRetry)
	}
	if err := bodyTemplate.Execute(&body, payload); err != nil {
		return fmt.Errorf("failed to render body: %v: %w", err, asynq.SkipRetry)
	}

	raw := BuildMessage(p.cfg.SmtpFromAddress, payload.UserEmail, subject.String(), body.String(), time.Now())
	if err := p.emailSender.Send(ctx, []string{payload.UserEmail}, subject.String(), raw); err != nil {
		return fmt.Errorf("failed to send status notification for listing %s: %w", payload.ListingID, err)
	}
	log.Printf("Status notification for listing %s sent to %s", payload.ListingID, payload.UserEmail)
	return nil
}

// HandleImageProcessTask downsizes an uploaded image that exceeds the maximum
// dimension and writes it back under the same key.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}

	if p.storage == nil {
		return fmt.Errorf("image storage not configured: %w", asynq.SkipRetry)
	}
	key, ok := p.storage.KeyFromURL(payload.ImageURL)
	if !ok {
		return fmt.Errorf("image %s is not in our bucket: %w", payload.ImageURL, asynq.SkipRetry)
	}

	imgData, contentType, err := p.storage.GetObject(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		log.Printf("WARN: image %s for listing %s not found, upload probably never happened", key, payload.ListingID)
		return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
	}
	if err != nil {
		return err
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Printf("WARN: image %s exceeds max size (%d > %d bytes)", key, len(imgData), maxSizeBytes)
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return fmt.Errorf("unsupported image format or corrupt image %s: %v: %w", key, err, asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.ImageMaxDimension)
	if uint(img.Bounds().Dx()) <= maxDim && uint(img.Bounds().Dy()) <= maxDim {
		log.Printf("Image %s (%s %dx%d) within limits, left as %s", key, format, img.Bounds().Dx(), img.Bounds().Dy(), contentType)
		return nil
	}

	resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to re-encode resized image %s: %w", key, err)
	}
	if err := p.storage.PutObject(ctx, key, buf.Bytes(), "image/jpeg"); err != nil {
		return err
	}
	log.Printf("Resized image %s for listing %s from %dx%d to %dx%d", key, payload.ListingID,
		img.Bounds().Dx(), img.Bounds().Dy(), resized.Bounds().Dx(), resized.Bounds().Dy())
	return nil
}

// HandleAuditReconcileTask reports listings modified after their newest audit
// entry. It only logs; the audit trail is never written retroactively.
func (p *TaskProcessor) HandleAuditReconcileTask(ctx context.Context, t *asynq.Task) error {
	unaudited, err := p.auditService.FindUnauditedListings(ctx, p.cfg.AuditReconcileWindow)
	if err != nil {
		return fmt.Errorf("audit reconciliation failed: %w", err)
	}
	for _, u := range unaudited {
		last := "never"
		if u.LastAuditedAt != nil {
			last = u.LastAuditedAt.Format(time.RFC3339Nano)
		}
		log.Printf("CRITICAL: possible unaudited mutation of listing %s (%q): updated %s, last audited %s",
			u.ListingID, u.Title, u.UpdatedAt.Format(time.RFC3339Nano), last)
	}
	log.Printf("Audit reconciliation checked the last %v: %d listing(s) flagged", p.cfg.AuditReconcileWindow, len(unaudited))
	return nil
}
