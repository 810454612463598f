package config

type WorkerKeyStruct struct {
	PersistLearningAnswersQueue string
	PersistLearningScoresQueue  string
	// Items that can never be persisted are parked here for inspection.
	PersistLearningDeadLetter string
}

var WorkerKey = &WorkerKeyStruct{
	PersistLearningAnswersQueue: "persist_learning_answers_queue",
	PersistLearningScoresQueue:  "persist_learning_scores_queue",
	PersistLearningDeadLetter:   "persist_learning_dead_letter",
}
