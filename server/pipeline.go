package main

import (
	"fmt"
	"sync"
	"time"

	. "github.com/hongclass/speakgrinder/types"
)

// Pipeline runs the grading sequence for a submission: transcribe the
// recording, check the topic against the assignment's sample
// transcript, grade, and persist the result through the gateway. At
// most one run per submission is allowed at a time.
type Pipeline struct {
	store   *Store
	gateway *Gateway
	ai      *AIClient

	mutex    sync.Mutex
	inFlight map[string]bool
}

func NewPipeline(store *Store, gateway *Gateway, ai *AIClient) *Pipeline {
	return &Pipeline{
		store:    store,
		gateway:  gateway,
		ai:       ai,
		inFlight: make(map[string]bool),
	}
}

// Begin registers a grading run for a submission ID, refusing a second
// concurrent run for the same submission. Every successful Begin must
// be paired with an End.
func (p *Pipeline) Begin(id string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.inFlight[id] {
		return fmt.Errorf("submission %s is already being graded", id)
	}
	p.inFlight[id] = true
	return nil
}

func (p *Pipeline) End(id string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	delete(p.inFlight, id)
}

// Process runs the pipeline for one submission. If media is non-nil
// the recording is transcribed first; a transcription failure aborts
// the run without persisting anything. A topic mismatch persists the
// submission as pending with the mismatch flag set and stops before
// grading; that is a normal outcome, not an error. A grading failure
// persists the submission as pending with its transcript so the work
// done so far is not lost.
//
// isNew selects the gateway action (add vs update); report may be nil.
func (p *Pipeline) Process(sub *Submission, asst *Assignment, media *MediaFile, isNew bool, report func(*PipelineEvent)) (*Submission, error) {
	if report == nil {
		report = func(*PipelineEvent) {}
	}
	emit := func(stage, format string, params ...interface{}) {
		report(&PipelineEvent{
			When:    time.Now(),
			Stage:   stage,
			Message: fmt.Sprintf(format, params...),
		})
	}

	if media != nil {
		emit(StageTranscribing, "transcribing %s", media.Name)
		transcript, err := p.ai.TranscribeSubmission(media)
		if err != nil {
			return nil, fmt.Errorf("could not transcribe %s: %v", media.Name, err)
		}
		sub.Transcript = transcript
	}
	if sub.Transcript == "" {
		return nil, fmt.Errorf("submission %s has no transcript to grade", sub.ID)
	}

	// topic check only applies when there is a sample to compare with
	if !asst.IsFreestyle && asst.SampleVideoTranscript != "" {
		emit(StageChecking, "checking the topic against the sample transcript")
		if !p.ai.CheckSimilarity(sub.Transcript, asst.SampleVideoTranscript) {
			sub.ContentMismatched = true
			sub.Status = StatusFieldPending
			sub.Score = nil
			sub.Feedback = ""
			emit(StageMismatch, "the submission does not match the assignment topic")
			if err := p.persist(sub, isNew); err != nil {
				return nil, err
			}
			report(&PipelineEvent{When: time.Now(), Stage: StageDone, Submission: sub})
			return sub, nil
		}
	}

	emit(StageGrading, "grading the transcript")
	score, feedback, err := p.ai.GradeAndFeedback(sub.StudentName, asst.Title, sub.Transcript, asst.SampleVideoTranscript)
	if err != nil {
		// keep the transcript even though grading failed
		sub.Status = StatusFieldPending
		if perr := p.persist(sub, isNew); perr != nil {
			return nil, perr
		}
		return nil, fmt.Errorf("grading failed: %v", err)
	}
	// a graded result always clears the mismatch flag, whether the
	// topic check passed or was skipped
	sub.Score = &score
	sub.Feedback = feedback
	sub.Status = StatusFieldGraded
	sub.ContentMismatched = false

	emit(StageSaving, "saving the graded submission")
	if err := p.persist(sub, isNew); err != nil {
		return nil, err
	}
	report(&PipelineEvent{When: time.Now(), Stage: StageDone, Submission: sub})
	return sub, nil
}

func (p *Pipeline) persist(sub *Submission, isNew bool) error {
	action := ActionScoreUpdate
	if isNew {
		action = ActionSubmitCreate
	}
	if err := p.gateway.Call(action, sub, nil); err != nil {
		return err
	}
	return p.store.ReloadAll()
}
