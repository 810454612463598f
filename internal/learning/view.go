package learning

// View is a read-only snapshot of a session for the rendering layer.
type View struct {
	Phase            Phase         `json:"phase"`
	Position         int           `json:"position"`
	Total            int           `json:"total"`
	Question         *QuestionView `json:"question,omitempty"`
	Selected         *int          `json:"selected_option"`
	Correct          *bool         `json:"correct,omitempty"`
	Score            *float64      `json:"score"`
	Answered         int           `json:"answered"`
	RefetchOnAdvance bool          `json:"refetch_on_advance"`
	Failure          *FailureView  `json:"failure,omitempty"`
	Notice           string        `json:"notice,omitempty"`
}

// NoContentNotice is shown when the question service has nothing left to ask.
const NoContentNotice = "No questions available."

// QuestionView is the current question. The correct option is only present
// once the answer has been revealed.
type QuestionView struct {
	ID            string     `json:"id"`
	Prompt        string     `json:"question"`
	Options       []string   `json:"options"`
	Difficulty    Difficulty `json:"difficulty"`
	CorrectOption *int       `json:"correct_option,omitempty"`
}

// FailureView describes why the session is in PhaseError.
type FailureView struct {
	Kind      FailureKind `json:"kind"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	v := View{
		Phase:    s.phase,
		Position: s.position,
		Total:    len(s.questions),
		Answered: len(s.batch),
	}
	if s.hasScore {
		score := s.score
		v.Score = &score
	}

	if s.phase == PhasePresenting || s.phase == PhaseRevealed {
		q := s.questions[s.position]
		qv := &QuestionView{
			ID:         q.ID,
			Prompt:     q.Prompt,
			Options:    append([]string(nil), q.Options...),
			Difficulty: q.Difficulty,
		}
		if s.selected != noSelection {
			selected := s.selected
			v.Selected = &selected
		}
		if s.phase == PhaseRevealed {
			correctOption := q.CorrectOption
			qv.CorrectOption = &correctOption
			correct := s.selected == q.CorrectOption
			v.Correct = &correct
			v.RefetchOnAdvance = s.position+1 >= len(s.questions)
		}
		v.Question = qv
	}

	if s.phase == PhaseNoContent {
		v.Notice = NoContentNotice
	}
	if s.phase == PhaseError && s.failure != nil {
		v.Failure = &FailureView{
			Kind:      s.failure.Kind,
			Message:   s.failure.Err.Error(),
			Retryable: s.pending != nil,
		}
	}
	return v
}
