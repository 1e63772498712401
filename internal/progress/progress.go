// Package progress defines the stage model and event stream for a merge
// run. The pipeline reports through an Emitter, which maps per-stage
// fractions onto a single 0-100 scale and guarantees the published
// percentage never moves backwards.
package progress

import (
	"fmt"
	"math"
	"sync"
)

// Stage identifies a phase of the merge pipeline.
type Stage string

const (
	StageAnalyzing  Stage = "analyzing"
	StageConverting Stage = "converting"
	// StageMerging labels concatenation work reported separately from
	// transcoding; the current pipeline folds both into converting.
	StageMerging         Stage = "merging"
	StageWritingMetadata Stage = "writing_metadata"
	StageFinalizing      Stage = "finalizing"
	StageCleanup         Stage = "cleanup"
	StageCompleted       Stage = "completed"
	StageFailed          Stage = "failed"
	StageCancelled       Stage = "cancelled"
)

// Stage boundaries on the overall 0-100 scale. Conversion owns the bulk
// of the run; its live percentage is capped just below the boundary so
// the jump to the metadata stage is always visible.
const (
	analyzingStart       = 0.0
	analyzingEnd         = 10.0
	convertingStart      = 10.0
	convertingEnd        = 80.0
	convertingCap        = 79.0
	writingMetadataPoint = 90.0
	finalizingPoint      = 95.0
	cleanupPoint         = 98.0
	completedPoint       = 100.0
)

// Event is one progress update published to the sink.
type Event struct {
	Stage       Stage
	Percent     float64
	Message     string
	CurrentFile string
	// ETASeconds is the estimated remaining wall time for the run.
	// Nil when no estimate is available yet.
	ETASeconds *float64
}

// Notifier receives progress events. Implementations must tolerate
// being called from the pipeline goroutine.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

// Notify implements Notifier.
func (f NotifierFunc) Notify(event Event) { f(event) }

// Emitter publishes stage-scoped progress events. It is safe for
// concurrent use and enforces monotonically non-decreasing percentages
// for all stages except the terminal failure and cancellation events.
type Emitter struct {
	mu          sync.Mutex
	notifier    Notifier
	lastPercent float64
}

// NewEmitter wraps a notifier. A nil notifier yields an emitter that
// still tracks percentages but publishes nothing.
func NewEmitter(notifier Notifier) *Emitter {
	return &Emitter{notifier: notifier}
}

func (e *Emitter) publish(event Event) {
	e.mu.Lock()
	if event.Stage != StageFailed && event.Stage != StageCancelled {
		if event.Percent < e.lastPercent {
			event.Percent = e.lastPercent
		}
		e.lastPercent = event.Percent
	} else {
		event.Percent = e.lastPercent
	}
	notifier := e.notifier
	e.mu.Unlock()

	if notifier != nil {
		notifier.Notify(event)
	}
}

// LastPercent returns the highest percentage published so far.
func (e *Emitter) LastPercent() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPercent
}

// Analyzing reports input analysis progress. fraction is the share of
// inputs inspected so far, in [0, 1].
func (e *Emitter) Analyzing(fraction float64, message string) {
	percent := analyzingStart + clampFraction(fraction)*(analyzingEnd-analyzingStart)
	e.publish(Event{Stage: StageAnalyzing, Percent: percent, Message: message})
}

// Converting reports transcoding progress. fraction is the share of the
// total output duration already encoded. The published percentage is
// capped below the conversion boundary.
func (e *Emitter) Converting(fraction float64, message, currentFile string, etaSeconds *float64) {
	percent := convertingStart + clampFraction(fraction)*(convertingEnd-convertingStart)
	percent = math.Min(percent, convertingCap)
	e.publish(Event{
		Stage:       StageConverting,
		Percent:     percent,
		Message:     message,
		CurrentFile: currentFile,
		ETASeconds:  etaSeconds,
	})
}

// ConvertingFallback reports conversion progress when the total
// duration is unknown. The percentage creeps toward the stage cap as
// updates arrive so the caller still sees movement.
func (e *Emitter) ConvertingFallback(updateCount int, message string) {
	count := math.Min(float64(updateCount), 50)
	percent := math.Min(convertingStart+count*1.4, convertingCap)
	e.publish(Event{Stage: StageConverting, Percent: percent, Message: message})
}

// WritingMetadata marks the start of metadata embedding.
func (e *Emitter) WritingMetadata(message string) {
	e.publish(Event{Stage: StageWritingMetadata, Percent: writingMetadataPoint, Message: message})
}

// Finalizing marks the move of the merged file to its destination.
func (e *Emitter) Finalizing(message string) {
	e.publish(Event{Stage: StageFinalizing, Percent: finalizingPoint, Message: message})
}

// Cleanup marks removal of the session workspace.
func (e *Emitter) Cleanup(message string) {
	e.publish(Event{Stage: StageCleanup, Percent: cleanupPoint, Message: message})
}

// Complete marks a successful run at 100 percent.
func (e *Emitter) Complete(message string) {
	e.publish(Event{Stage: StageCompleted, Percent: completedPoint, Message: message})
}

// Failed publishes a terminal failure event at the last percentage.
func (e *Emitter) Failed(message string) {
	e.publish(Event{Stage: StageFailed, Message: message})
}

// Cancelled publishes a terminal cancellation event at the last
// percentage.
func (e *Emitter) Cancelled(message string) {
	e.publish(Event{Stage: StageCancelled, Message: message})
}

func clampFraction(fraction float64) float64 {
	if math.IsNaN(fraction) || fraction < 0 {
		return 0
	}
	if fraction > 1 {
		return 1
	}
	return fraction
}

// FormatETA renders a remaining-seconds estimate for display: seconds
// under one minute, minutes and seconds above.
func FormatETA(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Round(seconds))
	if total < 60 {
		return fmt.Sprintf("%ds", total)
	}
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}
