package sql

import (
	"fmt"

	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
)

func fromDomainJobInstance(instance *model.JobInstance) *JobInstanceEntity {
	return &JobInstanceEntity{
		ID:             instance.ID,
		JobName:        instance.JobName,
		Parameters:     instance.Parameters,
		ParametersHash: instance.ParametersHash,
		CreateTime:     instance.CreateTime,
		Version:        instance.Version,
	}
}

func toDomainJobInstance(entity *JobInstanceEntity) *model.JobInstance {
	return &model.JobInstance{
		ID:             entity.ID,
		JobName:        entity.JobName,
		Parameters:     entity.Parameters,
		ParametersHash: entity.ParametersHash,
		CreateTime:     entity.CreateTime,
		Version:        entity.Version,
	}
}

func fromDomainJobExecution(je *model.JobExecution) *JobExecutionEntity {
	failures := je.Failures
	if failures == nil {
		failures = model.FailureList{}
	}
	return &JobExecutionEntity{
		ID:              je.ID,
		JobInstanceID:   je.JobInstanceID,
		JobName:         je.JobName,
		Parameters:      je.Parameters,
		Status:          je.Status.String(),
		ExitStatus:      je.ExitStatus.String(),
		CreateTime:      je.CreateTime,
		StartTime:       je.StartTime,
		EndTime:         je.EndTime,
		LastUpdated:     je.LastUpdated,
		CurrentStepName: je.CurrentStepName,
		Failures:        failures,
		Version:         je.Version,
	}
}

func toDomainJobExecution(entity *JobExecutionEntity) (*model.JobExecution, error) {
	status, err := model.ParseJobStatus(entity.Status)
	if err != nil {
		return nil, fmt.Errorf("job execution %s: %w", entity.ID, err)
	}
	return &model.JobExecution{
		ID:              entity.ID,
		JobInstanceID:   entity.JobInstanceID,
		JobName:         entity.JobName,
		Parameters:      entity.Parameters,
		Status:          status,
		ExitStatus:      model.ExitStatus(entity.ExitStatus),
		CreateTime:      entity.CreateTime,
		StartTime:       entity.StartTime,
		EndTime:         entity.EndTime,
		LastUpdated:     entity.LastUpdated,
		CurrentStepName: entity.CurrentStepName,
		Failures:        entity.Failures,
		Version:         entity.Version,
	}, nil
}

func fromDomainStepExecution(se *model.StepExecution) *StepExecutionEntity {
	failures := se.Failures
	if failures == nil {
		failures = model.FailureList{}
	}
	return &StepExecutionEntity{
		ID:               se.ID,
		JobExecutionID:   se.JobExecutionID,
		StepName:         se.StepName,
		Status:           se.Status.String(),
		ExitStatus:       se.ExitStatus.String(),
		ExitDescription:  se.ExitDescription,
		CreateTime:       se.CreateTime,
		StartTime:        se.StartTime,
		EndTime:          se.EndTime,
		LastUpdated:      se.LastUpdated,
		ReadCount:        se.ReadCount,
		WriteCount:       se.WriteCount,
		CommitCount:      se.CommitCount,
		RollbackCount:    se.RollbackCount,
		FilterCount:      se.FilterCount,
		ProcessSkipCount: se.ProcessSkipCount,
		WriteSkipCount:   se.WriteSkipCount,
		Failures:         failures,
		Version:          se.Version,
	}
}

func toDomainStepExecution(entity *StepExecutionEntity) (*model.StepExecution, error) {
	status, err := model.ParseJobStatus(entity.Status)
	if err != nil {
		return nil, fmt.Errorf("step execution %s: %w", entity.ID, err)
	}
	return &model.StepExecution{
		ID:               entity.ID,
		JobExecutionID:   entity.JobExecutionID,
		StepName:         entity.StepName,
		Status:           status,
		ExitStatus:       model.ExitStatus(entity.ExitStatus),
		ExitDescription:  entity.ExitDescription,
		CreateTime:       entity.CreateTime,
		StartTime:        entity.StartTime,
		EndTime:          entity.EndTime,
		LastUpdated:      entity.LastUpdated,
		ReadCount:        entity.ReadCount,
		WriteCount:       entity.WriteCount,
		CommitCount:      entity.CommitCount,
		RollbackCount:    entity.RollbackCount,
		FilterCount:      entity.FilterCount,
		ProcessSkipCount: entity.ProcessSkipCount,
		WriteSkipCount:   entity.WriteSkipCount,
		Failures:         entity.Failures,
		Version:          entity.Version,
	}, nil
}
