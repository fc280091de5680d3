package footfallRepository

const (
	queryCreateJob = `
		INSERT INTO processing_jobs (
			id,
			kind,
			status,
			input_source,
			roi_x1,
			roi_y1,
			roi_x2,
			roi_y2,
			confidence_threshold,
			debounce_frames,
			entry_count,
			exit_count,
			total_frames_processed,
			processing_duration,
			fps,
			output_path,
			error_message,
			created_at
		) VALUES (
			:id,
			:kind,
			:status,
			:input_source,
			:roi_x1,
			:roi_y1,
			:roi_x2,
			:roi_y2,
			:confidence_threshold,
			:debounce_frames,
			:entry_count,
			:exit_count,
			:total_frames_processed,
			:processing_duration,
			:fps,
			:output_path,
			:error_message,
			:created_at
		)
	`

	queryGetJobByID = `
		SELECT
			id,
			kind,
			status,
			input_source,
			roi_x1,
			roi_y1,
			roi_x2,
			roi_y2,
			confidence_threshold,
			debounce_frames,
			entry_count,
			exit_count,
			total_frames_processed,
			processing_duration,
			fps,
			output_path,
			error_message,
			created_at,
			started_at,
			completed_at
		FROM processing_jobs
		WHERE id = :id
	`

	queryGetJobs = `
		SELECT
			id,
			kind,
			status,
			input_source,
			roi_x1,
			roi_y1,
			roi_x2,
			roi_y2,
			confidence_threshold,
			debounce_frames,
			entry_count,
			exit_count,
			total_frames_processed,
			processing_duration,
			fps,
			output_path,
			error_message,
			created_at,
			started_at,
			completed_at
		FROM processing_jobs
		ORDER BY created_at DESC
	`

	queryMarkJobProcessing = `
		UPDATE processing_jobs
		SET
			status = 'processing',
			started_at = :started_at
		WHERE id = :id AND status = 'pending'
	`

	queryCompleteJob = `
		UPDATE processing_jobs
		SET
			status = 'completed',
			entry_count = :entry_count,
			exit_count = :exit_count,
			total_frames_processed = :total_frames_processed,
			processing_duration = :processing_duration,
			fps = :fps,
			output_path = :output_path,
			completed_at = :completed_at
		WHERE id = :id AND status = 'processing'
	`

	queryFailJob = `
		UPDATE processing_jobs
		SET
			status = 'failed',
			error_message = :error_message,
			completed_at = :completed_at
		WHERE id = :id AND status IN ('pending', 'processing')
	`

	queryCancelJob = `
		UPDATE processing_jobs
		SET
			status = 'cancelled',
			completed_at = :completed_at
		WHERE id = :id AND status IN ('pending', 'processing')
	`
)
