package service

import "sort"

// Session binds one socket to the player and room it speaks for.
type Session struct {
	SocketID string
	Username string
	Room     string
}

// BindSession associates socketID with username in room, replacing any
// previous binding of that socket.
func (s *GameService) BindSession(socketID, username, room string) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	s.sessions[socketID] = Session{SocketID: socketID, Username: username, Room: room}
	s.metrics.SetSessions(len(s.sessions))
}

// DropSession forgets socketID and returns the binding it had.
func (s *GameService) DropSession(socketID string) (Session, bool) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	sess, ok := s.sessions[socketID]
	if ok {
		delete(s.sessions, socketID)
		s.metrics.SetSessions(len(s.sessions))
	}
	return sess, ok
}

func (s *GameService) Session(socketID string) (Session, bool) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	sess, ok := s.sessions[socketID]
	return sess, ok
}

// SessionsInRoom returns every session bound to room, ordered by socket id.
func (s *GameService) SessionsInRoom(room string) []Session {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	var out []Session
	for _, sess := range s.sessions {
		if sess.Room == room {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SocketID < out[j].SocketID })
	return out
}

// UserSessions returns the sockets bound to username in room.
func (s *GameService) UserSessions(room, username string) []Session {
	var out []Session
	for _, sess := range s.SessionsInRoom(room) {
		if sess.Username == username {
			out = append(out, sess)
		}
	}
	return out
}

func (s *GameService) SessionCount() int {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	return len(s.sessions)
}

// dropUserSessions unbinds every socket of username; room "" matches any room.
func (s *GameService) dropUserSessions(username, room string) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	for id, sess := range s.sessions {
		if sess.Username == username && (room == "" || sess.Room == room) {
			delete(s.sessions, id)
		}
	}
	s.metrics.SetSessions(len(s.sessions))
}
