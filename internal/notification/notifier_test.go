package notification

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/domain/event"
)

type mockAppRepo struct {
	getByIDFunc func(ctx context.Context, id int64) (*entity.Application, error)
}

func (m *mockAppRepo) Create(ctx context.Context, app *entity.Application) error { return nil }

func (m *mockAppRepo) GetByID(ctx context.Context, id int64) (*entity.Application, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Application{ID: id, MerchantName: "Acme Stores", ContactEmail: "owner@acme.test"}, nil
}

func (m *mockAppRepo) List(ctx context.Context, limit, offset int) ([]*entity.Application, error) {
	return nil, nil
}

func (m *mockAppRepo) Update(ctx context.Context, app *entity.Application) error { return nil }

func (m *mockAppRepo) SoftDelete(ctx context.Context, id int64, at time.Time) error { return nil }

type mockNotificationRepo struct {
	created []*entity.Notification
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	n.ID = int64(len(m.created) + 1)
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepo) GetPending(ctx context.Context, limit int) ([]*entity.Notification, error) {
	return m.created, nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return nil
}

func (m *mockNotificationRepo) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	return nil
}

func newTestNotifier(appRepo *mockAppRepo, queue *mockNotificationRepo) *Notifier {
	return NewNotifier(appRepo, queue, zap.NewNop())
}

func TestHandleApproved(t *testing.T) {
	queue := &mockNotificationRepo{}
	n := newTestNotifier(&mockAppRepo{}, queue)

	err := n.HandleApproved(context.Background(), event.NewEvent(event.TypeApproved, 1, nil))
	if err != nil {
		t.Fatalf("HandleApproved() error = %v", err)
	}

	if len(queue.created) != 1 {
		t.Fatalf("queued notifications = %d, want 1", len(queue.created))
	}

	msg := queue.created[0]
	if msg.Kind != entity.NotificationApprovalEmail {
		t.Errorf("kind = %q", msg.Kind)
	}
	if msg.Recipient != "owner@acme.test" {
		t.Errorf("recipient = %q", msg.Recipient)
	}
	if msg.RecipientKind != entity.RecipientApplication {
		t.Errorf("recipient kind = %q", msg.RecipientKind)
	}
}

func TestHandleApproved_NoContactEmail(t *testing.T) {
	queue := &mockNotificationRepo{}
	appRepo := &mockAppRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Application, error) {
			return &entity.Application{ID: id, MerchantName: "Acme Stores"}, nil
		},
	}
	n := newTestNotifier(appRepo, queue)

	err := n.HandleApproved(context.Background(), event.NewEvent(event.TypeApproved, 1, nil))
	if err != nil {
		t.Fatalf("HandleApproved() error = %v", err)
	}

	if len(queue.created) != 0 {
		t.Errorf("queued notifications = %d without a contact email, want 0", len(queue.created))
	}
}

func TestHandleApproved_UnknownApplication(t *testing.T) {
	appRepo := &mockAppRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.Application, error) {
			return nil, nil
		},
	}
	n := newTestNotifier(appRepo, &mockNotificationRepo{})

	err := n.HandleApproved(context.Background(), event.NewEvent(event.TypeApproved, 99, nil))
	if err == nil {
		t.Fatal("HandleApproved() succeeded for an unknown application")
	}
}

func TestHandleAdditionalInfo(t *testing.T) {
	t.Run("requirement set enqueues email with notes", func(t *testing.T) {
		queue := &mockNotificationRepo{}
		n := newTestNotifier(&mockAppRepo{}, queue)

		evt := event.NewEvent(event.TypeAdditionalInfo, 1, map[string]interface{}{
			"required": true,
			"notes":    "Recent bank statement needed",
		})
		if err := n.HandleAdditionalInfo(context.Background(), evt); err != nil {
			t.Fatalf("HandleAdditionalInfo() error = %v", err)
		}

		if len(queue.created) != 1 {
			t.Fatalf("queued notifications = %d, want 1", len(queue.created))
		}
		if queue.created[0].Kind != entity.NotificationAdditionalInfo {
			t.Errorf("kind = %q", queue.created[0].Kind)
		}
	})

	t.Run("clearing the flag sends nothing", func(t *testing.T) {
		queue := &mockNotificationRepo{}
		n := newTestNotifier(&mockAppRepo{}, queue)

		evt := event.NewEvent(event.TypeAdditionalInfo, 1, map[string]interface{}{
			"required": false,
		})
		if err := n.HandleAdditionalInfo(context.Background(), evt); err != nil {
			t.Fatalf("HandleAdditionalInfo() error = %v", err)
		}

		if len(queue.created) != 0 {
			t.Errorf("queued notifications = %d when clearing, want 0", len(queue.created))
		}
	})
}

func TestHandleDocumentsComplete(t *testing.T) {
	queue := &mockNotificationRepo{}
	n := newTestNotifier(&mockAppRepo{}, queue)

	err := n.HandleDocumentsComplete(context.Background(), event.NewEvent(event.TypeDocumentsComplete, 1, nil))
	if err != nil {
		t.Fatalf("HandleDocumentsComplete() error = %v", err)
	}

	if len(queue.created) != 1 {
		t.Fatalf("queued notifications = %d, want 1", len(queue.created))
	}
	if queue.created[0].Kind != entity.NotificationDocumentsComplete {
		t.Errorf("kind = %q", queue.created[0].Kind)
	}
}
