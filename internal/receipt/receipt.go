// Package receipt delivers post-sale receipts off the request path. The
// checkout engine enqueues a task at completion; the worker process renders
// and sends it. Delivery is best effort and never blocks or fails a
// completed checkout.
package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/glowdesk/backend-salon/internal/common"
	"github.com/glowdesk/backend-salon/internal/obs"
)

// TaskDeliver is the asynq task type for receipt delivery.
const TaskDeliver = "receipt:deliver"

// Payload carries everything the worker needs; it deliberately does not
// reference the session, which is gone by the time the task runs.
type Payload struct {
	InvoiceID     string `json:"invoiceId"`
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
	TenantID      string `json:"tenantId"`
	Method        string `json:"method"`
	CustomerName  string `json:"customerName,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	CustomerPhone string `json:"customerPhone,omitempty"`
	GrandTotal    string `json:"grandTotal"`
	AmountPaid    string `json:"amountPaid"`
}

// Enqueuer submits delivery tasks.
type Enqueuer struct {
	Client *asynq.Client
	Queue  string
}

// Enqueue schedules a receipt delivery. Tasks are deduplicated per invoice.
func (e Enqueuer) Enqueue(ctx context.Context, p Payload) error {
	if e.Client == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("receipt: encode payload: %w", err)
	}
	queue := e.Queue
	if queue == "" {
		queue = "default"
	}
	task := asynq.NewTask(TaskDeliver, data)
	_, err = e.Client.EnqueueContext(ctx, task,
		asynq.Queue(queue),
		asynq.TaskID("receipt:"+p.InvoiceID),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	if err != nil && !strings.Contains(err.Error(), "task ID conflicts") {
		return err
	}
	return nil
}

// Handler processes delivery tasks inside the worker.
type Handler struct {
	Mailer common.EmailSender
	Logger zerolog.Logger
}

// HandleDeliver implements the asynq handler signature for TaskDeliver.
func (h Handler) HandleDeliver(ctx context.Context, task *asynq.Task) error {
	var p Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("receipt: decode payload: %w", err)
	}
	if p.CustomerEmail == "" {
		h.Logger.Info().Str("invoice_id", p.InvoiceID).Msg("receipt skipped, no customer email")
		if obs.ReceiptDeliveries != nil {
			obs.ReceiptDeliveries.WithLabelValues("skipped").Inc()
		}
		return nil
	}
	subject := "Your receipt"
	if p.InvoiceNumber != "" {
		subject = "Your receipt " + p.InvoiceNumber
	}
	if err := h.Mailer.Send(p.CustomerEmail, subject, render(p)); err != nil {
		if obs.ReceiptDeliveries != nil {
			obs.ReceiptDeliveries.WithLabelValues("error").Inc()
		}
		return fmt.Errorf("receipt: send: %w", err)
	}
	if obs.ReceiptDeliveries != nil {
		obs.ReceiptDeliveries.WithLabelValues("sent").Inc()
	}
	h.Logger.Info().
		Str("invoice_id", p.InvoiceID).
		Str("to", p.CustomerEmail).
		Msg("receipt delivered")
	return nil
}

func render(p Payload) string {
	var b strings.Builder
	b.WriteString("<p>Thank you")
	if p.CustomerName != "" {
		b.WriteString(", " + p.CustomerName)
	}
	b.WriteString("!</p>")
	if p.InvoiceNumber != "" {
		fmt.Fprintf(&b, "<p>Invoice: %s</p>", p.InvoiceNumber)
	}
	fmt.Fprintf(&b, "<p>Total: %s</p><p>Paid: %s</p>", p.GrandTotal, p.AmountPaid)
	return b.String()
}
