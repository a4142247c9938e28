package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zenorc/zenorc/internal/repoctx"
	"github.com/zenorc/zenorc/internal/sessions"
	"github.com/zenorc/zenorc/internal/validation"
)

// LLM is the slice of the generative-AI client the handlers need.
type LLM interface {
	UploadContext(ctx context.Context, path, displayName string) (string, error)
	Analyze(ctx context.Context, fileName string) (string, error)
	Refactor(ctx context.Context, fileName, analysis string) (saved, raw string, err error)
	Chat(ctx context.Context, fileName, systemContext string) (string, error)
	OutputPath(filename string) string
}

// HandlerConfig groups dependencies for the session handlers.
type HandlerConfig struct {
	LLM      LLM
	Sessions *sessions.Store
}

// RegisterSessionRoutes registers the repo-analysis API.
func RegisterSessionRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	r.GET("/api/history/:session_id", func(c *gin.Context) {
		sess, _ := cfg.Sessions.Snapshot(c.Param("session_id"))
		c.JSON(http.StatusOK, sess)
	})

	r.POST("/api/ingest", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.SessionRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		target := req.Data
		if strings.HasPrefix(target, "http") {
			dir, err := repoctx.Clone(target, req.SessionID)
			if err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, repoctx.ErrUntrustedURL) {
					status = http.StatusBadRequest
				}
				c.JSON(status, gin.H{"error": "clone_failed", "detail": err.Error()})
				return
			}
			target = dir
		}

		count, ctxPath, err := repoctx.Build(target, req.SessionID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "context_build_failed", "detail": err.Error()})
			return
		}

		fileName, err := cfg.LLM.UploadContext(ctx, ctxPath, fmt.Sprintf("Context_%s", req.SessionID))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload_failed", "detail": err.Error()})
			return
		}

		cfg.Sessions.SetFileName(req.SessionID, fileName)
		cfg.Sessions.Append(req.SessionID, "system", fmt.Sprintf("Repository ingested successfully (%d files).", count))

		c.JSON(http.StatusOK, gin.H{"status": "success", "file_name": fileName, "file_count": count})
	})

	r.POST("/api/analyze", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.SessionRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		sess := cfg.Sessions.Get(req.SessionID)
		if sess.FileName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no_repo_loaded"})
			return
		}

		analysis, err := cfg.LLM.Analyze(ctx, sess.FileName)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "analyze_failed", "detail": err.Error()})
			return
		}

		cfg.Sessions.SetAnalysis(req.SessionID, analysis)
		cfg.Sessions.Append(req.SessionID, "model", fmt.Sprintf("**Analysis Complete:**\n%s", analysis))

		c.JSON(http.StatusOK, gin.H{"analysis": analysis})
	})

	r.POST("/api/refactor", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.SessionRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		sess := cfg.Sessions.Get(req.SessionID)
		if sess.Analysis == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "run_analysis_first"})
			return
		}

		saved, raw, err := cfg.LLM.Refactor(ctx, sess.FileName, sess.Analysis)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "refactor_failed", "detail": err.Error()})
			return
		}
		if saved == "" {
			c.JSON(http.StatusOK, gin.H{"status": "no_file", "message": raw})
			return
		}

		cfg.Sessions.SetGeneratedFile(req.SessionID, saved)
		cfg.Sessions.Append(req.SessionID, "model", fmt.Sprintf("I have refactored and saved **%s**.", saved))

		c.JSON(http.StatusOK, gin.H{"status": "success", "generated_file": saved})
	})

	r.POST("/api/chat", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.SessionRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		cfg.Sessions.Append(req.SessionID, "user", req.Data)
		sess := cfg.Sessions.Get(req.SessionID)

		reply, err := cfg.LLM.Chat(ctx, sess.FileName, buildChatContext(sess))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "chat_failed", "detail": err.Error()})
			return
		}

		cfg.Sessions.Append(req.SessionID, "model", reply)
		c.JSON(http.StatusOK, gin.H{"reply": reply})
	})

	r.GET("/download/:filename", func(c *gin.Context) {
		path := cfg.LLM.OutputPath(c.Param("filename"))
		if _, err := os.Stat(path); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "file_not_found"})
			return
		}
		c.FileAttachment(path, c.Param("filename"))
	})
}

// buildChatContext injects the session memory (analysis, last generated
// file, prior turns) into one prompt, system messages excluded.
func buildChatContext(sess sessions.Session) string {
	var sb strings.Builder
	sb.WriteString("You are Repo-Ranger, an expert coding assistant.\n")

	if sess.Analysis != "" {
		sb.WriteString(fmt.Sprintf("\n--- CODEBASE ANALYSIS ---\n%s\n-------------------------\n", sess.Analysis))
	}
	if sess.GeneratedFile != "" {
		sb.WriteString(fmt.Sprintf("\n--- LATEST ACTION ---\nYou have refactored the code and saved it to: %s.\n---------------------\n", sess.GeneratedFile))
	}

	sb.WriteString("\nCHAT HISTORY:\n")
	for _, msg := range sess.History {
		if msg.Role == "system" {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
	}
	sb.WriteString("Assistant:")
	return sb.String()
}
