package importer

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/models"
)

type SyncJobPubSubPayload struct {
	JobId    int    `json:"job_id"`
	Domain   string `json:"domain"`
	RemoteId string `json:"remote_id"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func syncJobTopic() string {
	topicName := strings.TrimSpace(os.Getenv("SYNC_JOB_TOPIC"))
	if topicName == "" {
		topicName = "sync-jobs"
	}
	return topicName
}

func PublishSyncJob(ctx context.Context, job *models.SyncJob) error {
	topicName := syncJobTopic()

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topic := client.Topic(topicName)
	if envBoolDefault("SYNC_JOB_CREATE_TOPIC", false) {
		topic, err = config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
	}

	payload := SyncJobPubSubPayload{
		JobId:    job.ID,
		Domain:   string(job.Domain),
		RemoteId: job.RemoteId,
	}
	data, _ := json.Marshal(payload)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = res.Get(ctx)
	return err
}

// PubSubPushHandler accepts Google's push delivery and runs the named job
// inline. Always 204: a push retry storm must not build up, the direct
// processor covers anything dropped here.
func (imp *Importer) PubSubPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !envBoolDefault("ENABLE_SYNC_PUBSUB_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var payload SyncJobPubSubPayload
		if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil {
			c.Status(204)
			return
		}
		if payload.JobId == 0 {
			c.Status(204)
			return
		}

		_ = imp.RunJobById(c.Request.Context(), payload.JobId)
		c.Status(204)
	}
}

func envBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
