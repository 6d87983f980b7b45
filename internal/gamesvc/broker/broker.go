package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/bingo-rooms/internal/comm"
	"github.com/avvvet/bingo-rooms/internal/gamesvc/game"
	"github.com/avvvet/bingo-rooms/internal/gamesvc/service"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const requestTimeout = 10 * time.Second

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Broker struct {
	Conn        *nats.Conn
	pub         Publisher
	GameService *service.GameService
}

func NewBroker(nc *nats.Conn, gameService *service.GameService) *Broker {
	return &Broker{
		Conn:        nc,
		pub:         nc,
		GameService: gameService,
	}
}

// handles message coming from socket
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(msgNat.Data, msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}
	b.dispatch(msg)
}

func (b *Broker) dispatch(msg *comm.WSMessage) {
	if msg.Type == comm.Disconnect {
		b.handleDisconnect(msg)
		return
	}
	if msg.Username == "" {
		log.Warnf("dropping %s from socket %s: no username", msg.Type, msg.SocketId)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case comm.CreateRoom:
		err = b.handleCreateRoom(ctx, msg)
	case comm.JoinRoom:
		err = b.handleJoinRoom(ctx, msg)
	case comm.LeaveRoom:
		err = b.handleLeaveRoom(ctx, msg)
	case comm.StartGame:
		err = b.handleStartGame(ctx, msg)
	case comm.DrawNumber:
		err = b.handleDrawNumber(ctx, msg)
	case comm.ResetGame:
		err = b.handleResetGame(ctx, msg)
	case comm.SetPlayerCards:
		err = b.handleSetPlayerCards(ctx, msg)
	case comm.GetPlayersConfig:
		err = b.handleGetPlayersConfig(msg)
	case comm.UpdateCheckIns:
		err = b.handleUpdateCheckIns(ctx, msg)
	case comm.TransferAdmin:
		err = b.handleTransferAdmin(ctx, msg)
	case comm.SetPrize:
		err = b.handleSetPrize(ctx, msg)
	default:
		log.Warnf("unknown event received: %s", msg.Type)
		err = fmt.Errorf("unknown event %q", msg.Type)
	}

	if err != nil {
		b.sendError(msg, err)
	}
}

func decode(msg *comm.WSMessage, v any) error {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return errMalformed
	}
	return nil
}

var errMalformed = errors.New("malformed request")

func (b *Broker) handleDisconnect(msg *comm.WSMessage) {
	sess, ok := b.GameService.DropSession(msg.SocketId)
	if !ok {
		return
	}
	log.Infof("socket %s of %s disconnected from room %s", sess.SocketID, sess.Username, sess.Room)
}

func (b *Broker) handleCreateRoom(ctx context.Context, msg *comm.WSMessage) error {
	var req comm.CreateRoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	info, err := b.GameService.CreateRoom(ctx, req.Room, msg.Username, req.MaxPlayers)
	if err != nil {
		return err
	}
	b.send(msg.SocketId, comm.RoomCreated, comm.RoomUpdate{RoomInfo: info})

	res, err := b.GameService.JoinRoom(ctx, msg.SocketId, info.Name, msg.Username)
	if err != nil {
		return err
	}
	b.send(msg.SocketId, comm.GameState, gameState(res))
	return nil
}

func (b *Broker) handleJoinRoom(ctx context.Context, msg *comm.WSMessage) error {
	var req comm.RoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	res, err := b.GameService.JoinRoom(ctx, msg.SocketId, req.Room, msg.Username)
	if errors.Is(err, service.ErrCapacityExceeded) {
		b.send(msg.SocketId, comm.RoomFull, comm.ErrorData{Event: msg.Type, Message: err.Error()})
		return nil
	}
	if err != nil {
		return err
	}

	if !res.Rejoined {
		b.broadcast(req.Room, comm.PlayerJoined, comm.PlayersUpdate{
			Username:     res.Username,
			Players:      res.Players,
			PlayersCount: len(res.Players),
			IsAdmin:      res.IsAdmin,
			RoomInfo:     res.Room,
		})
	}
	b.send(msg.SocketId, comm.GameState, gameState(res))
	return nil
}

func gameState(res *service.JoinResult) comm.GameStateData {
	return comm.GameStateData{
		RoomInfo:     res.Room,
		Cards:        res.Cards,
		NumbersDrawn: res.Room.NumbersDrawn,
		Players:      res.Players,
		PlayersCount: len(res.Players),
		IsAdmin:      res.IsAdmin,
	}
}

func (b *Broker) handleLeaveRoom(ctx context.Context, msg *comm.WSMessage) error {
	var req comm.RoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	res, err := b.GameService.LeaveRoom(ctx, req.Room, msg.Username)
	if err != nil {
		return err
	}
	b.NotifyLeave(res, msg.SocketId)
	return nil
}

// NotifyLeave tells the room, and the leaving socket when given, that a
// player left.
func (b *Broker) NotifyLeave(res *service.LeaveResult, socketId string) {
	if res == nil {
		return
	}
	update := comm.PlayersUpdate{
		Username:     res.Username,
		Players:      res.Players,
		PlayersCount: len(res.Players),
		RoomInfo:     res.Room,
	}
	if !res.Closed {
		b.broadcast(res.Room.Name, comm.PlayerLeft, update)
	}
	if socketId != "" {
		b.send(socketId, comm.PlayerLeft, update)
	}
}

func (b *Broker) handleStartGame(ctx context.Context, msg *comm.WSMessage) error {
	var req comm.RoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	res, err := b.GameService.StartGame(ctx, req.Room, msg.Username)
	if err != nil {
		return err
	}

	b.broadcast(req.Room, comm.GameStarted, comm.RoomUpdate{RoomInfo: res.Room})
	for _, sess := range b.GameService.SessionsInRoom(req.Room) {
		b.send(sess.SocketID, comm.GameState, comm.GameStateData{
			RoomInfo:     res.Room,
			Cards:        res.Cards[sess.Username],
			NumbersDrawn: res.Room.NumbersDrawn,
			Players:      playerNames(res.Room),
			PlayersCount: res.Room.PlayersCount,
			IsAdmin:      sess.Username == res.Room.Admin,
		})
	}
	return nil
}

func (b *Broker) handleDrawNumber(ctx context.Context, msg *comm.WSMessage) error {
	var req comm.RoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	res, err := b.GameService.DrawNumber(ctx, req.Room, msg.Username)
	if err != nil {
		return err
	}

	b.broadcast(req.Room, comm.NumberDrawn, comm.NumberDrawnData{
		Number:     res.Number,
		Call:       res.Call,
		TotalDrawn: res.TotalDrawn,
		Remaining:  res.Remaining,
		RoomInfo:   res.Room,
	})
	b.sendCards(&res.GameUpdate)

	if res.Winner != nil {
		b.broadcast(req.Room, comm.GameFinished, comm.GameFinishedData{
			Winner:   res.Winner,
			Message:  fmt.Sprintf("%s got BINGO!", res.Winner.Username),
			RoomInfo: res.Room,
		})
	}
	return nil
}

func (b *Broker) handleResetGame(ctx context.Context, msg *comm.WSMessage) error {
	var req comm.RoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	res, err := b.GameService.ResetGame(ctx, req.Room, msg.Username)
	if err != nil {
		return err
	}

	b.broadcast(req.Room, comm.GameReset, comm.RoomUpdate{RoomInfo: res.Room, Message: "Game reset"})
	b.sendCards(res)
	return nil
}

// sendCards sends every bound session the cards of its own player.
func (b *Broker) sendCards(res *service.GameUpdate) {
	for _, sess := range b.GameService.SessionsInRoom(res.Room.Name) {
		cards, ok := res.Cards[sess.Username]
		if !ok {
			continue
		}
		b.send(sess.SocketID, comm.CardUpdated, comm.CardsData{Cards: cards, RoomInfo: res.Room})
	}
}

func (b *Broker) handleSetPlayerCards(ctx context.Context, msg *comm.WSMessage) error {
	var req comm.SetPlayerCardsRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	res, err := b.GameService.SetPlayerCards(ctx, req.Room, msg.Username, req.Username, req.NumCards)
	if err != nil {
		return err
	}

	b.broadcast(req.Room, comm.PlayerCardsUpdated, comm.PlayerCardsData{
		Username: res.Username,
		NumCards: res.NumCards,
		RoomInfo: res.Room,
	})
	if res.Regenerated {
		data := comm.CardsData{
			Cards:    res.Cards,
			RoomInfo: res.Room,
			Message:  fmt.Sprintf("Your cards were updated to %d", res.NumCards),
		}
		for _, sess := range b.GameService.UserSessions(req.Room, res.Username) {
			b.send(sess.SocketID, comm.CardsRegenerated, data)
		}
	}
	return nil
}

func (b *Broker) handleGetPlayersConfig(msg *comm.WSMessage) error {
	var req comm.RoomRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	players, err := b.GameService.PlayersConfig(req.Room, msg.Username)
	if err != nil {
		return err
	}
	b.send(msg.SocketId, comm.PlayersConfig, comm.PlayersConfigData{Room: req.Room, Players: players})
	return nil
}

func (b *Broker) handleUpdateCheckIns(ctx context.Context, msg *comm.WSMessage) error {
	var req comm.UpdateCheckInsRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	res, err := b.GameService.UpdateCheckIns(ctx, req.Room, msg.Username, req.Username, req.CheckIns)
	if err != nil {
		return err
	}
	b.broadcast(req.Room, comm.CheckInsUpdated, comm.CheckInsData{
		Username: res.Username,
		CheckIns: res.CheckIns,
		RoomInfo: res.Room,
	})
	return nil
}

func (b *Broker) handleTransferAdmin(ctx context.Context, msg *comm.WSMessage) error {
	var req comm.TransferAdminRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	res, err := b.GameService.TransferAdmin(ctx, req.Room, msg.Username, req.NewAdmin)
	if err != nil {
		return err
	}
	b.broadcast(req.Room, comm.AdminTransferred, comm.AdminData{
		OldAdmin: res.OldAdmin,
		NewAdmin: res.NewAdmin,
		Message:  fmt.Sprintf("%s is now the room admin", res.NewAdmin),
		RoomInfo: res.Room,
	})
	return nil
}

func (b *Broker) handleSetPrize(ctx context.Context, msg *comm.WSMessage) error {
	var req comm.SetPrizeRequest
	if err := decode(msg, &req); err != nil {
		return err
	}

	info, err := b.GameService.SetPrize(ctx, req.Room, msg.Username, req.Prize)
	if err != nil {
		return err
	}

	message := "Prize removed"
	if info.Prize != "" {
		message = "Prize updated: " + info.Prize
	}
	b.broadcast(req.Room, comm.PrizeUpdated, comm.PrizeData{Prize: info.Prize, Message: message, RoomInfo: info})
	return nil
}

// playerNames lists the members of info in join order.
func playerNames(info game.RoomInfo) []string {
	names := make([]string, len(info.PlayersConfig))
	for i, pc := range info.PlayersConfig {
		names[i] = pc.Username
	}
	return names
}

// sendError reports a failed request back to the socket that made it.
func (b *Broker) sendError(msg *comm.WSMessage, err error) {
	log.Infof("%s by %s rejected: %s", msg.Type, msg.Username, err)
	b.send(msg.SocketId, comm.Error, comm.ErrorData{Event: msg.Type, Message: userMessage(err)})
}

var userErrors = []error{
	service.ErrCapacityExceeded,
	service.ErrInvalidTarget,
	service.ErrNotAuthorized,
	service.ErrNoNumbersLeft,
	service.ErrGameNotActive,
	service.ErrNoMembers,
	service.ErrRoomNotFound,
	service.ErrUnknownUser,
	service.ErrInvalidName,
	service.ErrRoomExists,
	service.ErrAlreadyInRoom,
	service.ErrNotInRoom,
	service.ErrAlreadyAdmin,
	errMalformed,
}

func userMessage(err error) string {
	for _, e := range userErrors {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "request failed"
}

// broadcast sends one copy of the event to every session bound to room.
func (b *Broker) broadcast(room, msgType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("Error [broadcast] unable to marshal %s for room %s: %s", msgType, room, err)
		return
	}
	for _, sess := range b.GameService.SessionsInRoom(room) {
		b.publish(&comm.WSMessage{Type: msgType, Data: data, SocketId: sess.SocketID})
	}
}

func (b *Broker) send(socketId, msgType string, payload any) {
	msg, err := comm.NewMessage(msgType, socketId, payload)
	if err != nil {
		log.Errorf("Error [send] unable to marshal %s for socket %s: %s", msgType, socketId, err)
		return
	}
	b.publish(msg)
}

func (b *Broker) publish(msg *comm.WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}
	b.Publish(comm.GameSubject, payload)
}

// consume message from socket service
func (b *Broker) SubscribeSocketService(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// game service publish message for socket service to consume
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.pub.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
