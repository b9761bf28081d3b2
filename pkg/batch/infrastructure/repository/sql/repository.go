// Package sql provides a JobRepository stored in a relational database through GORM.
//
// Duplicate-run detection holds across processes: job instances are unique on
// (job_name, parameters_hash), and CreateJobExecution bumps the instance version with
// a compare-and-set in the same transaction that inserts the execution. Of two
// concurrent creators one loses the compare-and-set, re-reads, and sees the winner's
// execution.
package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tigerroll/surfbatch/pkg/batch/adapter/database"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfbatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

const defaultCreateAttempts = 5

var errConcurrentCreate = errors.New("job instance modified concurrently")

// GormConnection exposes the *gorm.DB of a connection.
type GormConnection interface {
	GetGormDB() *gorm.DB
}

// SQLJobRepository implements repository.JobRepository.
type SQLJobRepository struct {
	db             *gorm.DB
	createAttempts int
}

var _ repository.JobRepository = (*SQLJobRepository)(nil)

// NewSQLJobRepository creates a repository on conn. The schema must already exist;
// see Migrations.
func NewSQLJobRepository(conn GormConnection) *SQLJobRepository {
	return &SQLJobRepository{
		db:             conn.GetGormDB(),
		createAttempts: defaultCreateAttempts,
	}
}

// Close releases nothing; the connection belongs to its provider.
func (r *SQLJobRepository) Close() error {
	return nil
}

func wrapError(op, message string, err error) error {
	return exception.NewBatchError(op, message, err, false, true)
}

// --- JobInstance ---

// FindOrCreateJobInstance returns the instance for (jobName, identifying params). A
// concurrent insert of the same instance is resolved by reading the winner's row.
func (r *SQLJobRepository) FindOrCreateJobInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	const op = "SQLJobRepository.FindOrCreateJobInstance"

	instance, err := r.FindJobInstanceByJobNameAndParameters(ctx, jobName, params)
	if err == nil {
		return instance, nil
	}
	if !errors.Is(err, repository.ErrJobInstanceNotFound) {
		return nil, err
	}

	instance = model.NewJobInstance(jobName, params)
	if err := r.db.WithContext(ctx).Create(fromDomainJobInstance(instance)).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			logger.Debugf("JobInstance for '%s' was created concurrently; reloading.", jobName)
			return r.FindJobInstanceByJobNameAndParameters(ctx, jobName, params)
		}
		return nil, wrapError(op, fmt.Sprintf("failed to save JobInstance for job '%s'", jobName), err)
	}
	return instance, nil
}

// FindJobInstanceByID finds a JobInstance by its ID.
func (r *SQLJobRepository) FindJobInstanceByID(ctx context.Context, id string) (*model.JobInstance, error) {
	var entity JobInstanceEntity
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrJobInstanceNotFound
	}
	if err != nil {
		return nil, wrapError("SQLJobRepository.FindJobInstanceByID", fmt.Sprintf("failed to find JobInstance (ID: %s)", id), err)
	}
	return toDomainJobInstance(&entity), nil
}

// FindJobInstanceByJobNameAndParameters finds a JobInstance by job name and identifying parameters.
func (r *SQLJobRepository) FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	var entity JobInstanceEntity
	err := r.db.WithContext(ctx).
		Where("job_name = ? AND parameters_hash = ?", jobName, params.Hash()).
		Take(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrJobInstanceNotFound
	}
	if err != nil {
		return nil, wrapError("SQLJobRepository.FindJobInstanceByJobNameAndParameters", fmt.Sprintf("failed to find JobInstance for job '%s'", jobName), err)
	}
	return toDomainJobInstance(&entity), nil
}

// GetJobInstanceCount returns the number of instances of jobName.
func (r *SQLJobRepository) GetJobInstanceCount(ctx context.Context, jobName string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&JobInstanceEntity{}).Where("job_name = ?", jobName).Count(&count).Error; err != nil {
		return 0, wrapError("SQLJobRepository.GetJobInstanceCount", "failed to count job instances", err)
	}
	return int(count), nil
}

// GetJobNames returns the distinct job names, sorted.
func (r *SQLJobRepository) GetJobNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	if err := r.db.WithContext(ctx).Model(&JobInstanceEntity{}).Distinct().Order("job_name").Pluck("job_name", &names).Error; err != nil {
		return nil, wrapError("SQLJobRepository.GetJobNames", "failed to list job names", err)
	}
	return names, nil
}

// --- JobExecution ---

// CreateJobExecution checks the latest execution of instance and inserts a new
// STARTING execution in one transaction, retrying when a concurrent creator wins the
// instance version.
func (r *SQLJobRepository) CreateJobExecution(ctx context.Context, instance *model.JobInstance) (*model.JobExecution, error) {
	var lastErr error
	for attempt := 1; attempt <= r.createAttempts; attempt++ {
		je, err := r.tryCreateJobExecution(ctx, instance)
		if !errors.Is(err, errConcurrentCreate) {
			return je, err
		}
		lastErr = err
		logger.Debugf("CreateJobExecution for instance %s lost a concurrent update (attempt %d).", instance.ID, attempt)
	}
	return nil, exception.NewOptimisticLockingFailureException("SQLJobRepository.CreateJobExecution",
		fmt.Sprintf("could not create an execution for JobInstance %s", instance.ID), lastErr)
}

func (r *SQLJobRepository) tryCreateJobExecution(ctx context.Context, instance *model.JobInstance) (*model.JobExecution, error) {
	const op = "SQLJobRepository.CreateJobExecution"
	var created *model.JobExecution

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored JobInstanceEntity
		if err := tx.Where("id = ?", instance.ID).Take(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", repository.ErrJobInstanceNotFound, instance.ID)
			}
			return err
		}

		var latest []JobExecutionEntity
		if err := tx.Where("job_instance_id = ?", instance.ID).Order("create_time DESC").Limit(1).Find(&latest).Error; err != nil {
			return err
		}
		var latestExecution *model.JobExecution
		if len(latest) > 0 {
			je, err := toDomainJobExecution(&latest[0])
			if err != nil {
				return err
			}
			latestExecution = je
		}
		if err := repository.CheckExecutionAllowed(instance, latestExecution); err != nil {
			return err
		}

		res := tx.Model(&JobInstanceEntity{}).
			Where("id = ? AND version = ?", stored.ID, stored.Version).
			Update("version", stored.Version+1)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errConcurrentCreate
		}

		je := model.NewJobExecution(instance)
		if err := tx.Create(fromDomainJobExecution(je)).Error; err != nil {
			return err
		}
		created = je
		return nil
	})
	if err == nil {
		return created, nil
	}
	if errors.Is(err, errConcurrentCreate) || errors.Is(err, repository.ErrJobInstanceNotFound) {
		return nil, err
	}
	if exception.IsBatchError(err) || isLaunchRejection(err) {
		return nil, err
	}
	return nil, wrapError(op, fmt.Sprintf("failed to create JobExecution for JobInstance %s", instance.ID), err)
}

func isLaunchRejection(err error) bool {
	var dup *exception.DuplicateRunError
	var running *exception.JobExecutionAlreadyRunningError
	return errors.As(err, &dup) || errors.As(err, &running)
}

// SaveJobExecution updates jobExecution when its Version matches the stored one.
func (r *SQLJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "SQLJobRepository.SaveJobExecution"

	now := time.Now()
	entity := fromDomainJobExecution(jobExecution)
	entity.Version = jobExecution.Version + 1
	entity.LastUpdated = now

	res := r.db.WithContext(ctx).Model(&JobExecutionEntity{}).
		Where("id = ? AND version = ?", jobExecution.ID, jobExecution.Version).
		Select("*").Omit("id", "job_instance_id", "create_time").
		Updates(entity)
	if res.Error != nil {
		return wrapError(op, fmt.Sprintf("failed to update JobExecution (ID: %s)", jobExecution.ID), res.Error)
	}
	if res.RowsAffected == 0 {
		if !r.exists(ctx, &JobExecutionEntity{}, jobExecution.ID) {
			return fmt.Errorf("%w: %s", repository.ErrJobExecutionNotFound, jobExecution.ID)
		}
		return exception.NewOptimisticLockingFailureException("repository",
			fmt.Sprintf("JobExecution %s was modified concurrently (version %d)", jobExecution.ID, jobExecution.Version), nil)
	}
	jobExecution.Version = entity.Version
	jobExecution.LastUpdated = now
	return nil
}

// FindJobExecutionByID loads the execution together with its step executions.
func (r *SQLJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error) {
	var entity JobExecutionEntity
	err := r.db.WithContext(ctx).Where("id = ?", executionID).Take(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrJobExecutionNotFound
	}
	if err != nil {
		return nil, wrapError("SQLJobRepository.FindJobExecutionByID", fmt.Sprintf("failed to find JobExecution (ID: %s)", executionID), err)
	}
	return r.assemble(ctx, &entity)
}

// FindLatestJobExecution returns the newest execution of instance.
func (r *SQLJobRepository) FindLatestJobExecution(ctx context.Context, instance *model.JobInstance) (*model.JobExecution, error) {
	var entities []JobExecutionEntity
	err := r.db.WithContext(ctx).
		Where("job_instance_id = ?", instance.ID).
		Order("create_time DESC").
		Limit(1).
		Find(&entities).Error
	if err != nil {
		return nil, wrapError("SQLJobRepository.FindLatestJobExecution", fmt.Sprintf("failed to find latest JobExecution for JobInstance %s", instance.ID), err)
	}
	if len(entities) == 0 {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.assemble(ctx, &entities[0])
}

// FindJobExecutionsByJobInstance returns executions of instance, newest first.
func (r *SQLJobRepository) FindJobExecutionsByJobInstance(ctx context.Context, instance *model.JobInstance) ([]*model.JobExecution, error) {
	var entities []JobExecutionEntity
	err := r.db.WithContext(ctx).
		Where("job_instance_id = ?", instance.ID).
		Order("create_time DESC").
		Find(&entities).Error
	if err != nil {
		return nil, wrapError("SQLJobRepository.FindJobExecutionsByJobInstance", fmt.Sprintf("failed to find JobExecutions for JobInstance %s", instance.ID), err)
	}
	out := make([]*model.JobExecution, 0, len(entities))
	for i := range entities {
		je, err := r.assemble(ctx, &entities[i])
		if err != nil {
			return nil, err
		}
		out = append(out, je)
	}
	return out, nil
}

func (r *SQLJobRepository) assemble(ctx context.Context, entity *JobExecutionEntity) (*model.JobExecution, error) {
	je, err := toDomainJobExecution(entity)
	if err != nil {
		return nil, err
	}
	steps, err := r.FindStepExecutionsByJobExecutionID(ctx, je.ID)
	if err != nil {
		return nil, err
	}
	for _, se := range steps {
		je.AddStepExecution(se)
	}
	return je, nil
}

// --- StepExecution ---

// SaveStepExecution inserts stepExecution on first save and otherwise updates it
// when its Version matches the stored one.
func (r *SQLJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	const op = "SQLJobRepository.SaveStepExecution"

	now := time.Now()
	entity := fromDomainStepExecution(stepExecution)
	entity.Version = stepExecution.Version + 1
	entity.LastUpdated = now

	db := r.db.WithContext(ctx)
	res := db.Model(&StepExecutionEntity{}).
		Where("id = ? AND version = ?", stepExecution.ID, stepExecution.Version).
		Select("*").Omit("id", "job_execution_id", "create_time").
		Updates(entity)
	if res.Error != nil {
		return wrapError(op, fmt.Sprintf("failed to update StepExecution (ID: %s)", stepExecution.ID), res.Error)
	}
	if res.RowsAffected > 0 {
		stepExecution.Version = entity.Version
		stepExecution.LastUpdated = now
		return nil
	}

	if r.exists(ctx, &StepExecutionEntity{}, stepExecution.ID) {
		return exception.NewOptimisticLockingFailureException("repository",
			fmt.Sprintf("StepExecution %s was modified concurrently", stepExecution.ID), nil)
	}
	if !r.exists(ctx, &JobExecutionEntity{}, stepExecution.JobExecutionID) {
		return fmt.Errorf("%w: %s", repository.ErrJobExecutionNotFound, stepExecution.JobExecutionID)
	}

	entity.Version = stepExecution.Version
	if err := db.Create(entity).Error; err != nil {
		return wrapError(op, fmt.Sprintf("failed to save StepExecution (ID: %s)", stepExecution.ID), err)
	}
	stepExecution.LastUpdated = now
	return nil
}

// FindStepExecutionsByJobExecutionID returns the step executions in creation order.
func (r *SQLJobRepository) FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error) {
	var entities []StepExecutionEntity
	err := r.db.WithContext(ctx).
		Where("job_execution_id = ?", jobExecutionID).
		Order("create_time ASC").
		Find(&entities).Error
	if err != nil {
		return nil, wrapError("SQLJobRepository.FindStepExecutionsByJobExecutionID", fmt.Sprintf("failed to find StepExecutions for JobExecution %s", jobExecutionID), err)
	}
	out := make([]*model.StepExecution, 0, len(entities))
	for i := range entities {
		se, err := toDomainStepExecution(&entities[i])
		if err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	return out, nil
}

func (r *SQLJobRepository) exists(ctx context.Context, entity interface{}, id string) bool {
	var count int64
	if err := r.db.WithContext(ctx).Model(entity).Where("id = ?", id).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}
