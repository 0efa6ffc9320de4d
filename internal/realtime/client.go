package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/leotaq/imobigestor/internal/auth"
	"github.com/leotaq/imobigestor/internal/identity"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 1024
	sendBuffer     = 32
)

// Cliente é uma conexão websocket autenticada.
type Cliente struct {
	UsuarioID uuid.UUID
	EmpresaID uuid.UUID

	conn  *websocket.Conn
	envio chan []byte
	salas map[string]struct{}
}

// NovoCliente monta o cliente; conn pode ser nil em testes.
func NovoCliente(usuarioID, empresaID uuid.UUID, conn *websocket.Conn) *Cliente {
	return &Cliente{
		UsuarioID: usuarioID,
		EmpresaID: empresaID,
		conn:      conn,
		envio:     make(chan []byte, sendBuffer),
		salas:     make(map[string]struct{}),
	}
}

// Envio expõe o canal de saída (consumido pelo write pump e pelos testes).
func (c *Cliente) Envio() <-chan []byte {
	return c.envio
}

// comando é o quadro de controle aceito dos clientes.
type comando struct {
	Acao string `json:"acao"`
	Sala string `json:"sala"`
}

// ServeWS faz o handshake: valida o token, registra a conexão no hub e a
// inscreve na sala da empresa. Credencial inválida rejeita a conexão;
// o cliente que quiser voltar reabre a conexão por conta própria.
func ServeWS(hub *Hub, jwtManager *auth.JWTManager) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// CORS do websocket é tratado pelo mesmo ALLOW_ORIGINS do router;
		// o upgrade em si aceita e a autenticação decide.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				token = parts[1]
			}
		}
		if token == "" {
			http.Error(w, "token ausente", http.StatusUnauthorized)
			return
		}

		claims, err := jwtManager.ParseAndValidate(token)
		if err != nil {
			http.Error(w, "token inválido", http.StatusUnauthorized)
			return
		}
		actor, err := identity.ActorFromClaims(claims)
		if err != nil {
			http.Error(w, "claims inválidas", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("ws: upgrade falhou")
			return
		}

		cliente := NovoCliente(actor.ID, actor.EmpresaID, conn)
		hub.Registrar(cliente)

		go cliente.writePump()
		go cliente.readPump(hub)
	}
}

func (c *Cliente) readPump(hub *Hub) {
	defer func() {
		hub.Desconectar(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd comando
		if err := json.Unmarshal(raw, &cmd); err != nil {
			continue
		}

		// clientes só entram e saem de salas de solicitação; a sala da
		// empresa é gerida pelo hub no connect/disconnect
		if !strings.HasPrefix(cmd.Sala, "solicitacao:") {
			continue
		}

		switch cmd.Acao {
		case "entrar":
			hub.EntrarSala(c, cmd.Sala)
		case "sair":
			hub.SairSala(c, cmd.Sala)
		}
	}
}

func (c *Cliente) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.envio:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
