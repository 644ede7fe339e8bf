package app

// EventType identifies different session events.
type EventType int

const (
	EventImageLoaded      EventType = iota // data: geometry.Size
	EventLoadFailed                        // data: error
	EventMaskChanged                       // data: nil
	EventHistoryChanged                    // data: HistoryState
	EventTransformChanged                  // data: viewport.Transform
	EventToolChanged                       // data: gesture.Tool
	EventClosed                            // data: nil
)

func (e EventType) String() string {
	switch e {
	case EventImageLoaded:
		return "ImageLoaded"
	case EventLoadFailed:
		return "LoadFailed"
	case EventMaskChanged:
		return "MaskChanged"
	case EventHistoryChanged:
		return "HistoryChanged"
	case EventTransformChanged:
		return "TransformChanged"
	case EventToolChanged:
		return "ToolChanged"
	case EventClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// HistoryState is the payload of EventHistoryChanged.
type HistoryState struct {
	CanUndo bool
	CanRedo bool
}

// Subscription identifies a registered listener. Pass it to Off to remove
// the listener; all subscriptions are released when the session closes.
type Subscription struct {
	event EventType
	id    uint64
}

type subscriber struct {
	id uint64
	fn EventListener
}

type event struct {
	typ  EventType
	data interface{}
}

// On registers an event listener for the specified event type.
func (s *Session) On(ev EventType, listener EventListener) Subscription {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	if s.listeners == nil {
		return Subscription{event: ev}
	}
	s.nextID++
	s.listeners[ev] = append(s.listeners[ev], subscriber{id: s.nextID, fn: listener})
	return Subscription{event: ev, id: s.nextID}
}

// Off removes a listener. Unknown or released subscriptions are ignored.
func (s *Session) Off(sub Subscription) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	subs := s.listeners[sub.event]
	for i := range subs {
		if subs[i].id == sub.id {
			s.listeners[sub.event] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(ev EventType, data interface{}) {
	s.lmu.RLock()
	subs := s.listeners[ev]
	s.lmu.RUnlock()

	for _, sub := range subs {
		sub.fn(data)
	}
}

func (s *Session) emitAll(events []event) {
	for _, e := range events {
		s.Emit(e.typ, e.data)
	}
}
