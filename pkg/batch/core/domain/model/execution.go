package model

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// NewID returns a random identifier for instances and executions.
func NewID() string {
	return uuid.NewString()
}

// JobInstance is a Job identified by its name and identifying parameters.
// Its parameter identity never changes after creation.
type JobInstance struct {
	ID             string
	JobName        string
	Parameters     JobParameters
	ParametersHash string
	CreateTime     time.Time
	Version        int
}

// NewJobInstance creates a JobInstance for jobName and params.
func NewJobInstance(jobName string, params JobParameters) *JobInstance {
	return &JobInstance{
		ID:             NewID(),
		JobName:        jobName,
		Parameters:     params,
		ParametersHash: params.Hash(),
		CreateTime:     time.Now(),
	}
}

// JobExecution is one attempt to run a JobInstance.
//
// A JobExecution is mutated only by the goroutine running the job. RequestStop
// is the exception and may be called from any goroutine.
type JobExecution struct {
	ID            string
	JobInstanceID string
	JobName       string
	Parameters    JobParameters
	Status        JobStatus
	ExitStatus    ExitStatus
	CreateTime    time.Time
	StartTime     *time.Time
	EndTime       *time.Time
	LastUpdated   time.Time
	// CurrentStepName is the last step handed to the step executor.
	CurrentStepName string
	Failures        FailureList
	StepExecutions  []*StepExecution
	Version         int

	failureErrs   []error
	stopRequested atomic.Bool
}

// NewJobExecution creates a JobExecution in STARTING status.
func NewJobExecution(instance *JobInstance) *JobExecution {
	now := time.Now()
	return &JobExecution{
		ID:            NewID(),
		JobInstanceID: instance.ID,
		JobName:       instance.JobName,
		Parameters:    instance.Parameters,
		Status:        StatusStarting,
		ExitStatus:    ExitStatusUnknown,
		CreateTime:    now,
		LastUpdated:   now,
		Failures:      FailureList{},
	}
}

// TransitionTo moves the execution to next, rejecting invalid transitions.
func (je *JobExecution) TransitionTo(next JobStatus) error {
	if !isValidTransition(je.Status, next) {
		return transitionError("job execution", je.ID, je.Status, next)
	}
	je.Status = next
	je.LastUpdated = time.Now()
	return nil
}

// MarkAsStarted moves the execution to STARTED and records the start time.
func (je *JobExecution) MarkAsStarted() error {
	if err := je.TransitionTo(StatusStarted); err != nil {
		return err
	}
	now := je.LastUpdated
	je.StartTime = &now
	je.ExitStatus = ExitStatusExecuting
	return nil
}

// MarkAsCompleted moves the execution to COMPLETED.
func (je *JobExecution) MarkAsCompleted() error {
	return je.finish(StatusCompleted, ExitStatusCompleted)
}

// MarkAsFailed records err and moves the execution to FAILED.
func (je *JobExecution) MarkAsFailed(err error) error {
	if ferr := je.finish(StatusFailed, ExitStatusFailed); ferr != nil {
		return ferr
	}
	je.AddFailureException(err)
	return nil
}

// MarkAsStopped moves the execution to STOPPED.
func (je *JobExecution) MarkAsStopped() error {
	return je.finish(StatusStopped, ExitStatusStopped)
}

func (je *JobExecution) finish(status JobStatus, exit ExitStatus) error {
	if err := je.TransitionTo(status); err != nil {
		return err
	}
	now := je.LastUpdated
	je.EndTime = &now
	je.ExitStatus = exit
	return nil
}

// AddFailureException records err unless the same message is already recorded.
func (je *JobExecution) AddFailureException(err error) {
	addFailure(&je.Failures, &je.failureErrs, err)
}

// FailureExceptions returns the errors recorded during this run.
// Executions loaded from a repository only carry the messages in Failures.
func (je *JobExecution) FailureExceptions() []error {
	return append([]error(nil), je.failureErrs...)
}

// AddStepExecution appends se to the ordered step executions.
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.StepExecutions = append(je.StepExecutions, se)
	se.JobExecution = je
}

// RequestStop asks the running job to stop at its next chunk or step boundary.
func (je *JobExecution) RequestStop() {
	je.stopRequested.Store(true)
}

// IsStopRequested reports whether RequestStop was called.
func (je *JobExecution) IsStopRequested() bool {
	return je.stopRequested.Load()
}

// Clone returns a copy that shares no mutable state with je.
// Step executions are cloned and re-parented to the copy.
func (je *JobExecution) Clone() *JobExecution {
	c := &JobExecution{
		ID:              je.ID,
		JobInstanceID:   je.JobInstanceID,
		JobName:         je.JobName,
		Parameters:      je.Parameters,
		Status:          je.Status,
		ExitStatus:      je.ExitStatus,
		CreateTime:      je.CreateTime,
		StartTime:       copyTime(je.StartTime),
		EndTime:         copyTime(je.EndTime),
		LastUpdated:     je.LastUpdated,
		CurrentStepName: je.CurrentStepName,
		Failures:        append(FailureList{}, je.Failures...),
		Version:         je.Version,
		failureErrs:     append([]error(nil), je.failureErrs...),
	}
	c.stopRequested.Store(je.IsStopRequested())
	for _, se := range je.StepExecutions {
		sc := se.Clone()
		sc.JobExecution = c
		c.StepExecutions = append(c.StepExecutions, sc)
	}
	return c
}

func (je *JobExecution) String() string {
	return fmt.Sprintf("JobExecution{id=%s, job=%s, instance=%s, status=%s, exit=%s, steps=%d}",
		je.ID, je.JobName, je.JobInstanceID, je.Status, je.ExitStatus, len(je.StepExecutions))
}

// StepExecution is one attempt to run a Step within a JobExecution.
type StepExecution struct {
	ID              string
	JobExecutionID  string
	StepName        string
	Status          JobStatus
	ExitStatus      ExitStatus
	ExitDescription string
	CreateTime      time.Time
	StartTime       *time.Time
	EndTime         *time.Time
	LastUpdated     time.Time

	ReadCount     int64
	WriteCount    int64
	CommitCount   int64
	RollbackCount int64
	FilterCount   int64
	// ProcessSkipCount counts items dropped by the skip policy during transform.
	ProcessSkipCount int64
	// WriteSkipCount counts items of chunks abandoned under the SKIP_CHUNK policy.
	WriteSkipCount int64

	Failures FailureList
	Version  int

	// JobExecution is the owning execution; it is not persisted.
	JobExecution *JobExecution

	failureErrs []error
}

// NewStepExecution creates a StepExecution in STARTING status.
func NewStepExecution(stepName string, jobExecution *JobExecution) *StepExecution {
	now := time.Now()
	se := &StepExecution{
		ID:          NewID(),
		StepName:    stepName,
		Status:      StatusStarting,
		ExitStatus:  ExitStatusUnknown,
		CreateTime:  now,
		LastUpdated: now,
		Failures:    FailureList{},
	}
	if jobExecution != nil {
		se.JobExecutionID = jobExecution.ID
		se.JobExecution = jobExecution
	}
	return se
}

// TransitionTo moves the step execution to next, rejecting invalid transitions.
func (se *StepExecution) TransitionTo(next JobStatus) error {
	if !isValidTransition(se.Status, next) {
		return transitionError("step execution", se.ID, se.Status, next)
	}
	se.Status = next
	se.LastUpdated = time.Now()
	return nil
}

// MarkAsStarted moves the step execution to STARTED.
func (se *StepExecution) MarkAsStarted() error {
	if err := se.TransitionTo(StatusStarted); err != nil {
		return err
	}
	now := se.LastUpdated
	se.StartTime = &now
	se.ExitStatus = ExitStatusExecuting
	return nil
}

// MarkAsCompleted moves the step execution to COMPLETED. The exit status is
// COMPLETED_WITH_SKIPS when any item or chunk was skipped.
func (se *StepExecution) MarkAsCompleted() error {
	exit := ExitStatusCompleted
	if se.SkipCount() > 0 {
		exit = ExitStatusCompletedWithSkips
	}
	return se.finish(StatusCompleted, exit)
}

// MarkAsFailed records err and moves the step execution to FAILED.
func (se *StepExecution) MarkAsFailed(err error) error {
	if ferr := se.finish(StatusFailed, ExitStatusFailed); ferr != nil {
		return ferr
	}
	se.AddFailureException(err)
	if err != nil {
		se.ExitDescription = err.Error()
	}
	return nil
}

// MarkAsStopped moves the step execution to STOPPED.
func (se *StepExecution) MarkAsStopped() error {
	return se.finish(StatusStopped, ExitStatusStopped)
}

func (se *StepExecution) finish(status JobStatus, exit ExitStatus) error {
	if err := se.TransitionTo(status); err != nil {
		return err
	}
	now := se.LastUpdated
	se.EndTime = &now
	se.ExitStatus = exit
	return nil
}

// AddFailureException records err unless the same message is already recorded.
func (se *StepExecution) AddFailureException(err error) {
	addFailure(&se.Failures, &se.failureErrs, err)
}

// FailureExceptions returns the errors recorded during this run.
func (se *StepExecution) FailureExceptions() []error {
	return append([]error(nil), se.failureErrs...)
}

// SkipCount is the total of skipped items.
func (se *StepExecution) SkipCount() int64 {
	return se.ProcessSkipCount + se.WriteSkipCount
}

// Parameters returns the parameters of the owning job execution.
func (se *StepExecution) Parameters() JobParameters {
	if se.JobExecution == nil {
		return NewJobParameters()
	}
	return se.JobExecution.Parameters
}

// Clone returns a copy without the JobExecution back reference.
func (se *StepExecution) Clone() *StepExecution {
	c := *se
	c.StartTime = copyTime(se.StartTime)
	c.EndTime = copyTime(se.EndTime)
	c.Failures = append(FailureList{}, se.Failures...)
	c.failureErrs = append([]error(nil), se.failureErrs...)
	c.JobExecution = nil
	return &c
}

func (se *StepExecution) String() string {
	return fmt.Sprintf("StepExecution{step=%s, status=%s, read=%d, write=%d, filter=%d, commit=%d, rollback=%d, skip=%d}",
		se.StepName, se.Status, se.ReadCount, se.WriteCount, se.FilterCount, se.CommitCount, se.RollbackCount, se.SkipCount())
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
