package sql

import (
	"embed"
	"io/fs"
	"time"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
)

//go:embed migrations
var migrations embed.FS

// Migrations returns the repository schema migrations, one directory per database type.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// JobInstanceEntity is the persisted form of model.JobInstance.
type JobInstanceEntity struct {
	ID             string              `gorm:"column:id;primaryKey"`
	JobName        string              `gorm:"column:job_name"`
	Parameters     model.JobParameters `gorm:"column:parameters"`
	ParametersHash string              `gorm:"column:parameters_hash"`
	CreateTime     time.Time           `gorm:"column:create_time"`
	Version        int                 `gorm:"column:version"`
}

func (JobInstanceEntity) TableName() string {
	return "batch_job_instance"
}

// JobExecutionEntity is the persisted form of model.JobExecution without its steps.
type JobExecutionEntity struct {
	ID              string              `gorm:"column:id;primaryKey"`
	JobInstanceID   string              `gorm:"column:job_instance_id"`
	JobName         string              `gorm:"column:job_name"`
	Parameters      model.JobParameters `gorm:"column:parameters"`
	Status          string              `gorm:"column:status"`
	ExitStatus      string              `gorm:"column:exit_status"`
	CreateTime      time.Time           `gorm:"column:create_time"`
	StartTime       *time.Time          `gorm:"column:start_time"`
	EndTime         *time.Time          `gorm:"column:end_time"`
	LastUpdated     time.Time           `gorm:"column:last_updated"`
	CurrentStepName string              `gorm:"column:current_step_name"`
	Failures        model.FailureList   `gorm:"column:failures"`
	Version         int                 `gorm:"column:version"`
}

func (JobExecutionEntity) TableName() string {
	return "batch_job_execution"
}

// StepExecutionEntity is the persisted form of model.StepExecution.
type StepExecutionEntity struct {
	ID               string            `gorm:"column:id;primaryKey"`
	JobExecutionID   string            `gorm:"column:job_execution_id"`
	StepName         string            `gorm:"column:step_name"`
	Status           string            `gorm:"column:status"`
	ExitStatus       string            `gorm:"column:exit_status"`
	ExitDescription  string            `gorm:"column:exit_description"`
	CreateTime       time.Time         `gorm:"column:create_time"`
	StartTime        *time.Time        `gorm:"column:start_time"`
	EndTime          *time.Time        `gorm:"column:end_time"`
	LastUpdated      time.Time         `gorm:"column:last_updated"`
	ReadCount        int64             `gorm:"column:read_count"`
	WriteCount       int64             `gorm:"column:write_count"`
	CommitCount      int64             `gorm:"column:commit_count"`
	RollbackCount    int64             `gorm:"column:rollback_count"`
	FilterCount      int64             `gorm:"column:filter_count"`
	ProcessSkipCount int64             `gorm:"column:process_skip_count"`
	WriteSkipCount   int64             `gorm:"column:write_skip_count"`
	Failures         model.FailureList `gorm:"column:failures"`
	Version          int               `gorm:"column:version"`
}

func (StepExecutionEntity) TableName() string {
	return "batch_step_execution"
}
