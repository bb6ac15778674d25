package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/report"
)

// Request/reply subjects served by the NATS handler.
const (
	SubjectValidateRequirements = "speclint.validate.requirements"
	SubjectValidateDesign       = "speclint.validate.design"
	SubjectValidateTasks        = "speclint.validate.tasks"
	SubjectTrace                = "speclint.trace"
	SubjectEARS                 = "speclint.ears"

	// natsQueue is the queue group; multiple instances share the load.
	natsQueue = "speclint"
)

// NATSHandler serves validation over NATS request/reply. Payloads are the
// same JSON shapes the HTTP API uses.
type NATSHandler struct {
	nc   *nats.Conn
	log  *slog.Logger
	subs []*nats.Subscription
}

// NewNATSHandler creates a handler on an established connection.
func NewNATSHandler(nc *nats.Conn, log *slog.Logger) *NATSHandler {
	if log == nil {
		log = slog.Default()
	}
	return &NATSHandler{nc: nc, log: log}
}

// Start subscribes to all speclint subjects.
func (h *NATSHandler) Start() error {
	validate := func(kind document.DocumentKind) nats.MsgHandler {
		return func(msg *nats.Msg) { h.handleValidate(msg, kind) }
	}

	if err := h.subscribe(SubjectValidateRequirements, validate(document.KindRequirements)); err != nil {
		return err
	}
	if err := h.subscribe(SubjectValidateDesign, validate(document.KindDesign)); err != nil {
		return err
	}
	if err := h.subscribe(SubjectValidateTasks, validate(document.KindTasks)); err != nil {
		return err
	}
	if err := h.subscribe(SubjectTrace, h.handleTrace); err != nil {
		return err
	}
	if err := h.subscribe(SubjectEARS, h.handleEARS); err != nil {
		return err
	}

	h.log.Info("NATS handler started", "subjects", len(h.subs), "queue", natsQueue)
	return nil
}

// Stop removes all subscriptions. The connection itself is owned by the
// caller.
func (h *NATSHandler) Stop() {
	for _, sub := range h.subs {
		if err := sub.Unsubscribe(); err != nil {
			h.log.Warn("Failed to unsubscribe", "subject", sub.Subject, "error", err)
		}
	}
	h.subs = nil
}

func (h *NATSHandler) subscribe(subject string, handler nats.MsgHandler) error {
	sub, err := h.nc.QueueSubscribe(subject, natsQueue, handler)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	h.subs = append(h.subs, sub)
	return nil
}

func (h *NATSHandler) handleValidate(msg *nats.Msg, kind document.DocumentKind) {
	var req ValidateRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.respondError(msg, "invalid request: "+err.Error())
		return
	}

	start := time.Now()
	res, err := runValidation(req, kind)
	if err != nil {
		h.respondError(msg, "validation failed: "+err.Error())
		return
	}
	recordValidation(res, time.Since(start))

	h.respond(msg, validateResponse(res))
}

func (h *NATSHandler) handleTrace(msg *nats.Msg) {
	var req TraceRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.respondError(msg, "invalid request: "+err.Error())
		return
	}

	matrix, err := report.BuildMatrix(req.Requirements, req.Design, req.Tasks)
	if err != nil {
		h.respondError(msg, "matrix build failed: "+err.Error())
		return
	}
	MatrixCount.Inc()

	h.respond(msg, TraceResponse{ReportID: newReportID(), Matrix: matrix})
}

func (h *NATSHandler) handleEARS(msg *nats.Msg) {
	var req EARSRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.respondError(msg, "invalid request: "+err.Error())
		return
	}

	res, err := analyzeEARS(req)
	if err != nil {
		h.respondError(msg, "parse failed: "+err.Error())
		return
	}

	h.respond(msg, EARSResponse{ReportID: newReportID(), Result: res})
}

func (h *NATSHandler) respond(msg *nats.Msg, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.respondError(msg, "encode response: "+err.Error())
		return
	}
	if err := msg.Respond(data); err != nil {
		h.log.Warn("Failed to respond", "subject", msg.Subject, "error", err)
	}
}

func (h *NATSHandler) respondError(msg *nats.Msg, text string) {
	data, _ := json.Marshal(map[string]string{"error": text})
	if err := msg.Respond(data); err != nil {
		h.log.Warn("Failed to respond", "subject", msg.Subject, "error", err)
	}
}

// StartEmbeddedNATS runs an in-process NATS server on a random port, for
// single-binary deployments and tests.
func StartEmbeddedNATS() (*natsserver.Server, error) {
	opts := &natsserver.Options{
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start")
	}
	return ns, nil
}
