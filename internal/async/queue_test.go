package async

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/constants"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/cases"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/common"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/extract"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/pairing"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/parse"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/pipeline"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/repository"
	"github.com/patriciodunstan/back-investigaci-n-vehiculos-sub000/internal/storage"
)

type fileRunner struct{}

func (fileRunner) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	data, err := os.ReadFile(args[len(args)-2])
	if err != nil {
		return nil, nil, err
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[i+1:]
	}
	return data, nil, nil
}

func newQueueEnv(t *testing.T) (*pipeline.Processor, *repository.MemoryDocumentRepository) {
	t.Helper()
	docs := repository.NewMemoryDocumentRepository()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	brands, err := parse.LoadBrandTable()
	if err != nil {
		t.Fatalf("LoadBrandTable: %v", err)
	}
	proc := pipeline.NewProcessor(
		extract.NewExtractorWithRunner(common.ExtractConfig{MinTextChars: 10}, fileRunner{}, nil),
		parse.NewCaseOrderParser(nil),
		parse.NewCertificateParser(brands, nil),
		pairing.NewDetector(docs, 24*time.Hour, nil),
		cases.NewCreator(repository.NewMemoryCaseRepository(), repository.NewMemoryAttachmentRepository(), store, nil),
		docs, store, nil,
	)
	return proc, docs
}

func waitForStatus(t *testing.T, docs *repository.MemoryDocumentRepository, id uuid.UUID, want constants.DocStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := docs.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if doc.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	doc, _ := docs.GetByID(context.Background(), id)
	t.Fatalf("doc %v stuck in %v, want %v", id, doc.Status, want)
}

func TestQueueProcessesJobs(t *testing.T) {
	proc, docs := newQueueEnv(t)
	ctx := context.Background()

	q := NewProcessorQueue(proc, slog.Default(), WithWorkers(2), WithQueueSize(8))
	defer q.Shutdown(context.Background())

	orderText := "OFICIO N° 4321\nJUZGADO DE LETRAS\nSantiago, 12 de marzo de 2024\n"
	certText := "CERTIFICADO DE INSCRIPCION\nPATENTE : ABCD12\nMARCA : CHEV\n"

	order, err := proc.Ingest(ctx, "oficio.pdf", []byte("%PDF-1.7\n"+orderText), nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	cert, err := proc.Ingest(ctx, "cav.pdf", []byte("%PDF-1.7\n"+certText), nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if err := q.Enqueue(ctx, Job{DocumentID: order.ID, SubmittedAt: time.Now()}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, Job{DocumentID: cert.ID, SubmittedAt: time.Now()}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	waitForStatus(t, docs, order.ID, constants.StatusCompleted)
	waitForStatus(t, docs, cert.ID, constants.StatusCompleted)
}

func TestQueueShutdownDrains(t *testing.T) {
	proc, docs := newQueueEnv(t)
	ctx := context.Background()

	q := NewProcessorQueue(proc, slog.Default(), WithWorkers(1), WithQueueSize(32))

	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		doc, err := proc.Ingest(ctx, fmt.Sprintf("oficio_%d.pdf", i),
			[]byte(fmt.Sprintf("%%PDF-1.7\nOFICIO N° 9%d\nJUZGADO DE LETRAS\n", i)), nil)
		if err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		ids = append(ids, doc.ID)
		if err := q.Enqueue(ctx, Job{DocumentID: doc.ID, SubmittedAt: time.Now()}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	// Every accepted job ran before the workers stopped. Orders without a
	// certificate end up parked, not lost.
	for _, id := range ids {
		doc, err := docs.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if doc.Status != constants.StatusWaitingForPair {
			t.Errorf("doc %v status = %v, want WAITING_FOR_PAIR", id, doc.Status)
		}
	}

	// Enqueue after shutdown is refused quietly.
	if err := q.Enqueue(ctx, Job{DocumentID: uuid.New()}); err != nil {
		t.Errorf("Enqueue after shutdown: %v", err)
	}
}
