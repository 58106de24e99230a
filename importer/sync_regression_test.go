package importer_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/importer"
	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/mmdatafocus/syncdb_backend/syncdb"
	"github.com/sirupsen/logrus"
)

// fakeRemote is an in-memory syncdb.Client. Records are keyed by domain and
// remote id; byKey maps a natural-key value straight to a remote id.
type fakeRemote struct {
	records map[string]map[string]json.RawMessage
	byKey   map[string]map[string]string
	listErr map[string]error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		records: map[string]map[string]json.RawMessage{},
		byKey:   map[string]map[string]string{},
		listErr: map[string]error{},
	}
}

func (f *fakeRemote) put(t *testing.T, domain, id string, record interface{}) {
	t.Helper()
	raw, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal fake record %s/%s: %v", domain, id, err)
	}
	if f.records[domain] == nil {
		f.records[domain] = map[string]json.RawMessage{}
	}
	f.records[domain][id] = raw
}

func (f *fakeRemote) putKey(domain, keyValue, id string) {
	if f.byKey[domain] == nil {
		f.byKey[domain] = map[string]string{}
	}
	f.byKey[domain][keyValue] = id
}

func (f *fakeRemote) GetRecord(ctx context.Context, domain, remoteId string) (json.RawMessage, error) {
	raw, ok := f.records[domain][remoteId]
	if !ok {
		return nil, syncdb.ErrRecordNotFound
	}
	return raw, nil
}

func (f *fakeRemote) GetRecordByKey(ctx context.Context, domain, keyField, keyValue string) (json.RawMessage, error) {
	id, ok := f.byKey[domain][keyValue]
	if !ok {
		return nil, syncdb.ErrRecordNotFound
	}
	return f.GetRecord(ctx, domain, id)
}

func (f *fakeRemote) GetRecordList(ctx context.Context, domain string, updatedSince time.Time, page int) (*syncdb.RecordPage, error) {
	if err := f.listErr[domain]; err != nil {
		return nil, err
	}
	var records []json.RawMessage
	if page == 1 {
		for _, raw := range f.records[domain] {
			records = append(records, raw)
		}
	}
	return &syncdb.RecordPage{Records: records, HasMore: false}, nil
}

func (f *fakeRemote) PostTransaction(ctx context.Context, payload *syncdb.TransactionPayload) (*syncdb.TransactionResult, error) {
	return &syncdb.TransactionResult{TransactionId: "fake-txn-1"}, nil
}

func setupIntegrationEnv(t *testing.T) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "syncdb_test")
	t.Setenv("SYNC_JOB_PUBSUB_DISPATCH", "")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()
}

// drainQueue processes queued jobs inline until the queue is empty.
func drainQueue(t *testing.T, imp *importer.Importer) {
	t.Helper()
	ctx := context.Background()
	db := config.GetDB()
	for i := 0; i < 50; i++ {
		var jobs []models.SyncJob
		if err := db.WithContext(ctx).
			Where("status = ?", models.SyncJobStatusPending).
			Order("id ASC").Limit(20).Find(&jobs).Error; err != nil {
			t.Fatalf("fetch pending jobs: %v", err)
		}
		if len(jobs) == 0 {
			return
		}
		for i := range jobs {
			job := &jobs[i]
			imp.FinishJob(ctx, job, imp.Process(ctx, job))
		}
	}
	t.Fatalf("queue did not drain")
}

func remoteProduct(id, productType, variationType string, programCode *string) map[string]interface{} {
	record := map[string]interface{}{
		"id":            id,
		"productType":   productType,
		"name":          "Record " + id,
		"sku":           "SKU-" + id,
		"variationType": variationType,
		"active":        true,
		"displayed":     true,
		"discontinued":  false,
		"lastUpdated":   "2026-02-01T00:00:00Z",
	}
	if programCode != nil {
		record["programCode"] = *programCode
	}
	return record
}

func TestProductImportMatchingIsIdempotent(t *testing.T) {
	setupIntegrationEnv(t)
	ctx := context.Background()
	logger := logrus.New()

	remote := newFakeRemote()
	pgm := "PGM-100"
	// Two variations of the same logical product: same program code, both
	// with language/revision absent. They must share one parent.
	remote.put(t, "products", "p-pdf", remoteProduct("p-pdf", "document", "pdf", &pgm))
	remote.put(t, "products", "p-print", remoteProduct("p-print", "document", "print", &pgm))
	// Same program code value but a different unset/empty shape: an absent
	// program code must NOT match "PGM-100" and gets its own parent.
	remote.put(t, "products", "p-bare", remoteProduct("p-bare", "document", "pdf", nil))
	// An explicitly empty program code is a third distinct key state: it
	// matches other explicitly empty products but neither "PGM-100" nor
	// absent.
	empty := ""
	remote.put(t, "products", "p-empty-pdf", remoteProduct("p-empty-pdf", "document", "pdf", &empty))
	remote.put(t, "products", "p-empty-print", remoteProduct("p-empty-print", "document", "print", &empty))

	queue := importer.NewQueue(logger)
	imp := importer.New(remote, queue, logger)

	allIds := []string{"p-pdf", "p-print", "p-bare", "p-empty-pdf", "p-empty-print"}
	for _, id := range allIds {
		if err := imp.ImportProduct(ctx, id); err != nil {
			t.Fatalf("ImportProduct(%s): %v", id, err)
		}
	}

	db := config.GetDB()
	var productCount, variationCount int64
	if err := db.Model(&models.Product{}).Count(&productCount).Error; err != nil {
		t.Fatalf("count products: %v", err)
	}
	if err := db.Model(&models.ProductVariation{}).Count(&variationCount).Error; err != nil {
		t.Fatalf("count variations: %v", err)
	}
	if productCount != 3 {
		t.Fatalf("expected 3 parent products (shared PGM-100, bare, shared empty); got %d", productCount)
	}
	if variationCount != 5 {
		t.Fatalf("expected 5 variations; got %d", variationCount)
	}

	pdf, err := models.GetVariationByTypeAndRemoteId(ctx, "pdf", "p-pdf")
	if err != nil || pdf == nil {
		t.Fatalf("GetVariationByTypeAndRemoteId(pdf): %v %v", pdf, err)
	}
	printed, err := models.GetVariationByTypeAndRemoteId(ctx, "print", "p-print")
	if err != nil || printed == nil {
		t.Fatalf("GetVariationByTypeAndRemoteId(print): %v %v", printed, err)
	}
	if pdf.ProductId != printed.ProductId {
		t.Fatalf("same program code should share a parent: %d vs %d", pdf.ProductId, printed.ProductId)
	}
	bare, err := models.GetVariationByTypeAndRemoteId(ctx, "pdf", "p-bare")
	if err != nil || bare == nil {
		t.Fatalf("GetVariationByTypeAndRemoteId(bare): %v %v", bare, err)
	}
	if bare.ProductId == pdf.ProductId {
		t.Fatalf("absent program code must not match a populated one")
	}

	emptyPdf, err := models.GetVariationByTypeAndRemoteId(ctx, "pdf", "p-empty-pdf")
	if err != nil || emptyPdf == nil {
		t.Fatalf("GetVariationByTypeAndRemoteId(empty pdf): %v %v", emptyPdf, err)
	}
	emptyPrint, err := models.GetVariationByTypeAndRemoteId(ctx, "print", "p-empty-print")
	if err != nil || emptyPrint == nil {
		t.Fatalf("GetVariationByTypeAndRemoteId(empty print): %v %v", emptyPrint, err)
	}
	if emptyPdf.ProductId != emptyPrint.ProductId {
		t.Fatalf("explicitly empty program codes should share a parent: %d vs %d", emptyPdf.ProductId, emptyPrint.ProductId)
	}
	if emptyPdf.ProductId == bare.ProductId {
		t.Fatalf("explicitly empty program code must not match an absent one")
	}
	if emptyPdf.ProductId == pdf.ProductId {
		t.Fatalf("explicitly empty program code must not match a populated one")
	}

	// Re-import everything: no new rows, stable parents.
	for _, id := range allIds {
		if err := imp.ImportProduct(ctx, id); err != nil {
			t.Fatalf("re-ImportProduct(%s): %v", id, err)
		}
	}
	if err := db.Model(&models.Product{}).Count(&productCount).Error; err != nil {
		t.Fatalf("recount products: %v", err)
	}
	if err := db.Model(&models.ProductVariation{}).Count(&variationCount).Error; err != nil {
		t.Fatalf("recount variations: %v", err)
	}
	if productCount != 3 || variationCount != 5 {
		t.Fatalf("re-import changed row counts: products=%d variations=%d", productCount, variationCount)
	}
}

func TestOrderImportIssuesAndTopsUpLicenses(t *testing.T) {
	setupIntegrationEnv(t)
	ctx := context.Background()
	logger := logrus.New()

	remote := newFakeRemote()
	remote.put(t, "users", "u-1", map[string]interface{}{
		"id":        "u-1",
		"email":     "buyer@example.com",
		"firstName": "Pat",
		"lastName":  "Buyer",
		"isActive":  true,
	})
	remote.putKey("users", "buyer@example.com", "u-1")

	digital := remoteProduct("p-dl", "service", "download", nil)
	digital["isDigitalDownload"] = true
	digital["fileName"] = "standard-2026.pdf"
	digital["expirationKind"] = "UNLIMITED"
	digital["downloadLimit"] = 5
	remote.put(t, "products", "p-dl", digital)

	remote.put(t, "orders", "ord-1", map[string]interface{}{
		"id":             "ord-1",
		"orderNumber":    "SO-1001",
		"status":         "Pending Billing",
		"userEmail":      "buyer@example.com",
		"orderDate":      "2026-02-10T09:00:00Z",
		"subTotal":       "60.00",
		"shippingAmount": "0",
		"handlingAmount": "0",
		"taxAmount":      "0",
		"orderTotal":     "60.00",
		"paymentMethod":  "card",
		"lineItems": []map[string]interface{}{
			{
				"id":                "line-1",
				"productId":         "p-dl",
				"sku":               "SKU-p-dl",
				"quantity":          3,
				"unitPrice":         "20.00",
				"lineTotal":         "60.00",
				"isDigitalDownload": true,
			},
		},
	})

	queue := importer.NewQueue(logger)
	imp := importer.New(remote, queue, logger)

	if err := imp.ImportOrder(ctx, "ord-1"); err != nil {
		t.Fatalf("ImportOrder: %v", err)
	}

	order, err := models.GetOrderByRemoteId(ctx, "ord-1")
	if err != nil || order == nil {
		t.Fatalf("GetOrderByRemoteId: %v %v", order, err)
	}
	if order.Status != models.OrderStatusPending {
		t.Fatalf("expected order status pending; got %s", order.Status)
	}
	if len(order.Details) != 1 {
		t.Fatalf("expected 1 order detail; got %d", len(order.Details))
	}

	// Importing a digital order enqueues a license job; drain it.
	drainQueue(t, imp)

	variation, err := models.GetVariationByRemoteId(ctx, "p-dl")
	if err != nil || variation == nil {
		t.Fatalf("GetVariationByRemoteId: %v %v", variation, err)
	}
	count, err := models.CountLicenseGrants(ctx, variation.ID, "ord-1")
	if err != nil {
		t.Fatalf("CountLicenseGrants: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 license grants for qty 3; got %d", count)
	}

	// Top-up: lose one grant, re-run the order. Exactly one grant comes back.
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("product_variation_id = ? AND originating_transaction_id = ?", variation.ID, "ord-1").
		Limit(1).Delete(&models.LicenseGrant{}).Error; err != nil {
		t.Fatalf("delete grant: %v", err)
	}
	if err := imp.ImportOrder(ctx, "ord-1"); err != nil {
		t.Fatalf("re-ImportOrder: %v", err)
	}
	drainQueue(t, imp)

	count, err = models.CountLicenseGrants(ctx, variation.ID, "ord-1")
	if err != nil {
		t.Fatalf("CountLicenseGrants after top-up: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected top-up back to 3 grants; got %d", count)
	}

	// An expired grant no longer satisfies the paid quantity: a replay must
	// issue a fresh one alongside it.
	var expireMe models.LicenseGrant
	if err := db.WithContext(ctx).
		Where("product_variation_id = ? AND originating_transaction_id = ?", variation.ID, "ord-1").
		Order("id ASC").Take(&expireMe).Error; err != nil {
		t.Fatalf("fetch grant to expire: %v", err)
	}
	if err := models.SetLicenseState(ctx, expireMe.ID, models.LicenseStateExpired); err != nil {
		t.Fatalf("SetLicenseState: %v", err)
	}
	if err := imp.ImportOrder(ctx, "ord-1"); err != nil {
		t.Fatalf("re-ImportOrder after expiry: %v", err)
	}
	drainQueue(t, imp)

	count, err = models.CountLicenseGrants(ctx, variation.ID, "ord-1")
	if err != nil {
		t.Fatalf("CountLicenseGrants after expiry replacement: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 active grants after replacing the expired one; got %d", count)
	}
	var totalRows int64
	if err := db.WithContext(ctx).Model(&models.LicenseGrant{}).
		Where("product_variation_id = ? AND originating_transaction_id = ?", variation.ID, "ord-1").
		Count(&totalRows).Error; err != nil {
		t.Fatalf("count all grant rows: %v", err)
	}
	if totalRows != 4 {
		t.Fatalf("expected 4 grant rows (3 active + 1 expired); got %d", totalRows)
	}

	// Cancelling the order remotely revokes every active grant and must not
	// re-issue them on the same import.
	canceled := remote.records["orders"]["ord-1"]
	var canceledOrder map[string]interface{}
	if err := json.Unmarshal(canceled, &canceledOrder); err != nil {
		t.Fatalf("unmarshal fake order: %v", err)
	}
	canceledOrder["status"] = "Cancelled"
	remote.put(t, "orders", "ord-1", canceledOrder)

	if err := imp.ImportOrder(ctx, "ord-1"); err != nil {
		t.Fatalf("ImportOrder after cancel: %v", err)
	}
	drainQueue(t, imp)

	order, err = models.GetOrderByRemoteId(ctx, "ord-1")
	if err != nil || order == nil {
		t.Fatalf("GetOrderByRemoteId after cancel: %v %v", order, err)
	}
	if order.Status != models.OrderStatusCanceled {
		t.Fatalf("expected canceled order; got %s", order.Status)
	}
	count, err = models.CountLicenseGrants(ctx, variation.ID, "ord-1")
	if err != nil {
		t.Fatalf("CountLicenseGrants after cancel: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 active grants after cancel; got %d", count)
	}
}

func TestPollAdvancesCursorOnlyOnSuccess(t *testing.T) {
	setupIntegrationEnv(t)
	ctx := context.Background()
	logger := logrus.New()

	remote := newFakeRemote()
	remote.put(t, "products", "p-1", remoteProduct("p-1", "document", "pdf", nil))

	queue := importer.NewQueue(logger)
	poller := importer.NewPoller(remote, importer.NewCursorStore(), queue, logger)

	before, err := models.GetSyncCursor(ctx, models.SyncDomainProduct)
	if err != nil {
		t.Fatalf("GetSyncCursor: %v", err)
	}
	if !before.Equal(models.CursorEpoch) {
		t.Fatalf("fresh cursor should be epoch; got %v", before)
	}

	start := time.Now().Add(-time.Second)
	ids, err := poller.Poll(ctx, models.SyncDomainProduct)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(ids) != 1 || ids[0] != "p-1" {
		t.Fatalf("Poll ids = %v", ids)
	}

	after, err := models.GetSyncCursor(ctx, models.SyncDomainProduct)
	if err != nil {
		t.Fatalf("GetSyncCursor after poll: %v", err)
	}
	if !after.After(start) {
		t.Fatalf("cursor should have advanced past %v; got %v", start, after)
	}

	// A failed poll must not move the watermark.
	remote.listErr["products"] = fmt.Errorf("remote unavailable")
	if _, err := poller.Poll(ctx, models.SyncDomainProduct); err == nil {
		t.Fatal("Poll with remote failure: want error")
	}
	unchanged, err := models.GetSyncCursor(ctx, models.SyncDomainProduct)
	if err != nil {
		t.Fatalf("GetSyncCursor after failed poll: %v", err)
	}
	if !unchanged.Equal(after) {
		t.Fatalf("failed poll moved cursor from %v to %v", after, unchanged)
	}
}

func TestStaleProcessingJobsAreReclaimed(t *testing.T) {
	setupIntegrationEnv(t)
	ctx := context.Background()
	db := config.GetDB()

	job, err := models.CreateSyncJob(ctx, db, models.SyncDomainProduct, "p-stale", nil)
	if err != nil {
		t.Fatalf("CreateSyncJob: %v", err)
	}

	lockTTL := 30 * time.Second
	claimed, err := models.ClaimSyncJobs(ctx, db, "worker-a", 10, lockTTL)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != job.ID {
		t.Fatalf("first claim = %v, want job %d", claimed, job.ID)
	}

	// While the lock is fresh the job belongs to worker-a.
	claimed, err = models.ClaimSyncJobs(ctx, db, "worker-b", 10, lockTTL)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("fresh PROCESSING lock was stolen: %v", claimed)
	}

	// worker-a dies mid-job: the row stays PROCESSING with an aging lock.
	// Once the lock passes the TTL another worker must pick it back up.
	staleAt := time.Now().UTC().Add(-time.Hour)
	if err := db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("id = ?", job.ID).
		Update("locked_at", staleAt).Error; err != nil {
		t.Fatalf("backdate lock: %v", err)
	}

	claimed, err = models.ClaimSyncJobs(ctx, db, "worker-b", 10, lockTTL)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != job.ID {
		t.Fatalf("stale PROCESSING job was not reclaimed: %v", claimed)
	}
	if claimed[0].LockedBy == nil || *claimed[0].LockedBy != "worker-b" {
		t.Fatalf("reclaimed job should be locked by worker-b; got %v", claimed[0].LockedBy)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("syncdb-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("syncdb-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=syncdb_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
