package models

// QuizSummary is the per-quiz slice of the dashboard
type QuizSummary struct {
	SourceID      string `json:"source_id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"question_count"`
	CorrectCount  int    `json:"correct_count"`
	Attempted     bool   `json:"attempted"`
}

// DashboardStats is recomputed on demand from current store state,
// never incrementally maintained.
type DashboardStats struct {
	QuizzesTaken           int           `json:"quizzes_taken"`
	TotalQuestions         int           `json:"total_questions"`
	OverallAccuracyPercent float64       `json:"overall_accuracy_percent"`
	StudyTimeSeconds       int64         `json:"study_time_seconds"`
	WeakTopics             []string      `json:"weak_topics"`
	PerQuizSummaries       []QuizSummary `json:"per_quiz_summaries"`
}
