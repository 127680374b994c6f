package game

type EventType string

const (
	EventRoundStarted   EventType = "round_started"
	EventBoardReady     EventType = "board_ready"
	EventQuestionOpened EventType = "question_opened"
	EventOutOfStock     EventType = "out_of_stock"
	EventAnswerResolved EventType = "answer_resolved"
	EventGameFinished   EventType = "game_finished"
	EventReset          EventType = "reset"
	EventAborted        EventType = "aborted"
)

// Event is a state transition a presentation layer can react to.
type Event struct {
	Type       EventType
	Phase      Phase
	QuestionID string
	Team       int
	Correct    bool
	Points     int
	Winner     int
}

type Listener func(Event)

// Subscribe registers fn for every subsequent event and returns a function
// that removes it. Listeners run synchronously inside the transition.
func (m *Machine) Subscribe(fn Listener) (cancel func()) {
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() { delete(m.listeners, id) }
}

func (m *Machine) emit(e Event) {
	for _, fn := range m.listeners {
		fn(e)
	}
}
