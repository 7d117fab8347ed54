package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mdcollab/backend/config"
	"mdcollab/backend/internal/auth"
	"mdcollab/backend/internal/cache"
	"mdcollab/backend/internal/command"
	"mdcollab/backend/internal/editop"
	"mdcollab/backend/internal/httpapi/middleware"
	"mdcollab/backend/internal/ipc"
	"mdcollab/backend/internal/store"
	"mdcollab/backend/internal/ws"
)

// 视图进程维护的文档镜像：按行寻址，和 agent 侧的权威缓冲区保持同构
type mirror struct {
	mu   sync.Mutex
	docs map[string]*editop.LineDoc
}

func newMirror() *mirror {
	return &mirror{docs: make(map[string]*editop.LineDoc)}
}

func (m *mirror) getOrCreate(docID, content string) *editop.LineDoc {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[docID]
	if !ok {
		d = editop.NewLineDoc(content)
		m.docs[docID] = d
	}
	return d
}

func (m *mirror) get(docID string) *editop.LineDoc {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[docID]
}

func main() {
	cfg, err := config.LoadView()
	if err != nil {
		log.Fatalf("init config failed: %v", err)
	}
	log.Printf("config: %+v", cfg)

	auth.SetSecret(cfg.Auth.Secret)

	// Redis：在线名单 + 内容缓存（可选，关掉就退化为进程内 singleflight）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
	}
	var presence cache.PresenceCache
	if rdb != nil {
		presence = cache.NewRedisPresence(rdb)
	}
	contentCache := cache.NewContentCache(rdb)

	hub := ws.NewHub(presence)
	manager := ws.NewManager(hub)

	// 连接 agent 进程。Dial 内部 2 秒一次重试直到连上
	ep, err := ipc.Dial(context.Background(), cfg.Agent.URL)
	if err != nil {
		log.Fatalf("Failed to connect agent: %v", err)
	}

	router := command.NewRouter(ep, time.Duration(cfg.Command.TimeoutMs)*time.Millisecond)
	mirrors := newMirror()

	// agent 的中间事件（start/typing/content/...）原样转播给订阅该文档的浏览器
	router.OnCommandEvent = func(evt ws.Event) {
		hub.Publish(evt.DocID, evt)
	}

	// agent 推来的操作批：更新本地镜像、失效缓存、再广播
	router.OnApplyOperations = func(docID string, ops []editop.Operation, revision uint64) {
		if d := mirrors.get(docID); d != nil {
			d.Apply(ops)
		}
		contentCache.Invalidate(context.Background(), docID)
		hub.Publish(docID, ws.Event{
			Type:       ws.EventOperationsApplied,
			DocID:      docID,
			Operations: ops,
			Revision:   revision,
			Timestamp:  time.Now(),
		})
	}

	// 重连补推：订阅者带 lastRevision 重新进房间时，从 agent 拉错过的操作批
	hub.SetCatchUp(func(ctx context.Context, docID string, sinceRevision uint64) []ws.Event {
		batches, err := router.PullBatches(ctx, docID, sinceRevision)
		if err != nil {
			log.Printf("catch-up pull failed (doc=%s since=%d): %v", docID, sinceRevision, err)
			return nil
		}
		out := make([]ws.Event, 0, len(batches))
		for _, b := range batches {
			out = append(out, ws.Event{
				Type:       ws.EventOperationsApplied,
				DocID:      docID,
				Operations: b.Operations,
				Revision:   b.Revision,
				Timestamp:  time.Now(),
			})
		}
		return out
	})

	go ep.Run()

	// 文档元数据（可选，需要 MySQL）
	var docStore *store.DocumentStore
	if cfg.Mysql.Enabled {
		gdb, err := store.InitMySQL(cfg.Mysql.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		docStore = store.NewDocumentStore(gdb)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	v1 := r.Group("/v1")

	// 开发用签发端点：生产环境应当由独立的用户服务颁发令牌
	if cfg.Auth.DevTokens {
		v1.POST("/auth/token", func(c *gin.Context) {
			var req struct {
				UserID   uint64 `json:"userId" binding:"required"`
				Username string `json:"username" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PARAMS", "message": err.Error()})
				return
			}
			token, expiresAt, err := auth.SignAccessToken(req.UserID, req.Username, 24*time.Hour)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": expiresAt.Unix()})
		})
	}

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware())

	// 发起一条命令：同步等待 agent 的关联结果
	authed.POST("/command", func(c *gin.Context) {
		var req struct {
			Command        string `json:"command" binding:"required"`
			DocID          string `json:"docId" binding:"required"`
			Request        string `json:"request"`
			Context        string `json:"context"`
			SelectionStart int    `json:"selectionStart"`
			SelectionEnd   int    `json:"selectionEnd"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PARAMS", "message": err.Error()})
			return
		}
		res, err := router.Route(c.Request.Context(), req.Command, command.Params{
			DocID:           req.DocID,
			OriginalRequest: req.Request,
			Context:         req.Context,
			SelectionStart:  req.SelectionStart,
			SelectionEnd:    req.SelectionEnd,
		})
		if err != nil {
			if errors.Is(err, command.ErrCommandTimeout) {
				c.JSON(http.StatusGatewayTimeout, gin.H{"code": "COMMAND_TIMEOUT", "message": "agent did not reply in time"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"code": "AGENT_UNAVAILABLE", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	})

	// 拉取文档全文（缓存回源到 agent 的权威缓冲区）
	authed.GET("/document/:docID", func(c *gin.Context) {
		docID := c.Param("docID")
		content, err := contentCache.Get(c.Request.Context(), docID, func() (string, error) {
			content, _, err := router.PullContent(c.Request.Context(), docID)
			return content, err
		})
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"code": "AGENT_UNAVAILABLE", "message": err.Error()})
			return
		}
		mirrors.getOrCreate(docID, content)
		c.JSON(http.StatusOK, gin.H{"docId": docID, "content": content})
	})

	if docStore != nil {
		authed.POST("/documents", func(c *gin.Context) {
			var req struct {
				Title string `json:"title" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PARAMS", "message": err.Error()})
				return
			}
			docID := uuid.NewString()
			if err := docStore.CreateDocument(c.Request.Context(), c.GetUint64("userId"), req.Title, docID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"docId": docID, "title": req.Title})
		})

		authed.GET("/documents/id", func(c *gin.Context) {
			title := c.Query("title")
			if title == "" {
				c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PARAMS", "message": "title is required"})
				return
			}
			docID, err := docStore.GetDocumentID(c.Request.Context(), title)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"docId": docID})
		})

		authed.GET("/documents", func(c *gin.Context) {
			metas, err := docStore.ListDocuments(c.Request.Context(), c.GetUint64("userId"))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"documents": metas})
		})
	}

	// 浏览器订阅通道（令牌可以放 ?token= 查询参数，浏览器 WebSocket 不能带自定义头）
	authed.GET("/ws", manager.Subscribe)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})

	_ = r.Run(fmt.Sprintf(":%d", cfg.Running.Port))
}
