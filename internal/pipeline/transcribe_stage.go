package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/joseph-ayodele/voice-orders/constants"
	"github.com/joseph-ayodele/voice-orders/internal/common"
	"github.com/joseph-ayodele/voice-orders/internal/entity"
	"github.com/joseph-ayodele/voice-orders/internal/llm"
	"github.com/joseph-ayodele/voice-orders/internal/observe"
	"github.com/joseph-ayodele/voice-orders/internal/repository"
	"github.com/joseph-ayodele/voice-orders/internal/transcribe"
)

// Transcribe moves a pending order through processing to completed, storing
// the recognized text. audioRef overrides the reference stored on the order.
// Any adapter failure leaves the order in the error state.
func (p *Processor) Transcribe(ctx context.Context, userID, orderID, audioRef string) (transcribe.Result, error) {
	unlock := p.locks.Lock(orderID)
	defer unlock()

	o, err := p.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return transcribe.Result{}, err
	}
	return p.transcribe(ctx, o, audioRef)
}

func (p *Processor) transcribe(ctx context.Context, o *entity.Order, audioRef string) (res transcribe.Result, err error) {
	ref := strings.TrimSpace(audioRef)
	if ref == "" && o.AudioRef != nil {
		ref = *o.AudioRef
	}
	if ref == "" {
		return res, common.NewAppError("NO_AUDIO", "order has no audio reference", common.ErrInvalidInput)
	}
	if o.Status != constants.OrderStatusPending {
		return res, common.NewAppError("INVALID_STATE", "order is "+string(o.Status)+", expected pending", common.ErrInvalidState)
	}

	start := time.Now()
	defer func() { p.Metrics.RecordStage(ctx, observe.StageTranscribe, err, time.Since(start)) }()

	if err := p.Orders.Update(ctx, o.ID, repository.OrderUpdate{Status: constants.OrderStatusProcessing}); err != nil {
		return res, err
	}
	o.Status = constants.OrderStatusProcessing
	p.Logger.Info("pipeline.transcribe.start", "order_id", o.ID, "user_id", o.UserID)

	res, err = p.runTranscriber(ctx, ref)
	if err != nil {
		p.Logger.Error("pipeline.transcribe.failed",
			"order_id", o.ID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		// the failure must be recorded even when ctx is what failed
		if uerr := p.Orders.Update(context.WithoutCancel(ctx), o.ID, repository.OrderUpdate{Status: constants.OrderStatusError}); uerr != nil {
			p.Logger.Error("pipeline.transcribe.status_write_failed", "order_id", o.ID, "error", uerr)
		} else {
			o.Status = constants.OrderStatusError
		}
		return transcribe.Result{}, common.NewAppError("TRANSCRIPTION_FAILED", "Transkription fehlgeschlagen", common.ErrTranscriptionFailed)
	}

	if err := p.Orders.Update(ctx, o.ID, repository.OrderUpdate{Status: constants.OrderStatusCompleted, Transcription: &res.Text}); err != nil {
		return transcribe.Result{}, err
	}
	o.Status = constants.OrderStatusCompleted
	o.Transcription = &res.Text
	p.Logger.Info("pipeline.transcribe.ok",
		"order_id", o.ID,
		"text_len", len(res.Text),
		"language", res.Language,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (p *Processor) runTranscriber(ctx context.Context, ref string) (transcribe.Result, error) {
	audio, err := p.Audio.Open(ctx, ref)
	if err != nil {
		return transcribe.Result{}, err
	}
	defer func() { _ = audio.Close() }()

	return p.Transcriber.Transcribe(ctx, transcribe.Request{
		Audio:       audio,
		Filename:    audio.Filename,
		ContentType: audio.ContentType,
		Language:    llm.TranscriptionLanguage,
		Prompt:      llm.TranscriptionPrompt,
	})
}
