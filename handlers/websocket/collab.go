package websocket

import (
	"context"
	"regexp"
	"sync"

	"github.com/anlyetim/TeamPad-sub001/core"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

var (
	activeRooms = make(map[string]int)
	roomsMutex  sync.RWMutex
)

// GetActiveRooms returns the live-session participant count per project.
func GetActiveRooms() map[string]int {
	roomsMutex.RLock()
	defer roomsMutex.RUnlock()

	rooms := make(map[string]int, len(activeRooms))
	for k, v := range activeRooms {
		rooms[k] = v
	}
	return rooms
}

// SetupSocketIO wires the low-latency relay tier. Clients join a room per
// project and every board-update is fanned out verbatim to the other members
// of that room; the polled HTTP queue remains the source of truth for
// catch-up.
func SetupSocketIO(store core.ProjectStore) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	localhostOrigin := regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)
	opts.SetCors(&types.Cors{
		Origin: []any{
			localhostOrigin,
		},
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}

		me := socket.Id()
		log := logrus.WithField("socket_id", me)
		_ = srv.To(socketio.Room(me)).Emit("init-room")

		socket.On("join-project", func(datas ...any) {
			if len(datas) == 0 {
				return
			}
			projectID, ok := datas[0].(string)
			if !ok || projectID == "" {
				log.Warn("join-project without a project id")
				return
			}
			if _, err := store.GetProject(context.Background(), projectID); err != nil {
				log.WithField("project_id", projectID).Warn("join-project for unknown project")
				_ = socket.Emit("join-error", map[string]any{"error": "project not found"})
				return
			}

			room := socketio.Room(projectID)
			socket.Join(room)
			log.WithField("project_id", projectID).Info("Socket joined project room")

			srv.In(room).FetchSockets()(func(members []*socketio.RemoteSocket, fetchErr error) {
				if fetchErr != nil {
					log.WithError(fetchErr).Error("Failed to fetch room members")
					return
				}

				roomsMutex.Lock()
				activeRooms[projectID] = len(members)
				roomsMutex.Unlock()

				if len(members) <= 1 {
					_ = srv.To(socketio.Room(me)).Emit("first-in-room")
				} else {
					_ = socket.Broadcast().To(room).Emit("new-user", me)
				}

				memberIDs := make([]socketio.SocketId, 0, len(members))
				for _, member := range members {
					memberIDs = append(memberIDs, member.Id())
				}
				srv.In(room).Emit("room-user-change", memberIDs)
			})
		})

		socket.On("board-update", func(datas ...any) {
			relayUpdate(socket, datas, false)
		})

		// Volatile updates (cursor moves, transient drags) may be dropped
		// under backpressure.
		socket.On("board-volatile-update", func(datas ...any) {
			relayUpdate(socket, datas, true)
		})

		socket.On("disconnecting", func(datas ...any) {
			for _, currentRoom := range socket.Rooms().Keys() {
				projectID := string(currentRoom)
				room := currentRoom
				srv.In(room).FetchSockets()(func(members []*socketio.RemoteSocket, _ error) {
					remaining := make([]socketio.SocketId, 0, len(members))
					for _, member := range members {
						if member.Id() != me {
							remaining = append(remaining, member.Id())
						}
					}

					roomsMutex.Lock()
					if len(remaining) == 0 {
						delete(activeRooms, projectID)
					} else {
						activeRooms[projectID] = len(remaining)
					}
					roomsMutex.Unlock()

					if len(remaining) > 0 {
						srv.In(room).Emit("room-user-change", remaining)
					}
				})
			}
		})

		socket.On("disconnect", func(datas ...any) {
			socket.RemoveAllListeners("")
			socket.Disconnect(true)
		})
	})

	return srv
}

func relayUpdate(socket *socketio.Socket, datas []any, volatile bool) {
	if len(datas) < 2 {
		return
	}
	projectID, ok := datas[0].(string)
	if !ok || projectID == "" {
		return
	}
	payload := datas[1]

	room := socketio.Room(projectID)
	if volatile {
		_ = socket.Volatile().Broadcast().To(room).Emit("board-update", payload)
		return
	}
	_ = socket.Broadcast().To(room).Emit("board-update", payload)
}
