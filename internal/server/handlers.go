package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"theonebook/internal/app"
	"theonebook/internal/util"
	"theonebook/pkg/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type lastPositionRequest struct {
	LastChapterID flexInt `json:"lastChapterId"`
	LastPageID    flexInt `json:"lastPageId"`
}

type chapterRequest struct {
	Title string  `json:"title"`
	Order flexInt `json:"order"`
}

func (c chapterRequest) input() app.ChapterInput {
	return app.ChapterInput{Title: c.Title, Order: c.Order.intPtr()}
}

type pageRequest struct {
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	Memo        string  `json:"memo"`
	ImageURL    string  `json:"imageUrl"`
	SubImageURL string  `json:"subImageUrl"`
	Order       flexInt `json:"order"`
	ChapterID   flexInt `json:"chapterId"`
}

func (p pageRequest) input() app.PageInput {
	return app.PageInput{
		Title:       p.Title,
		Content:     p.Content,
		Memo:        p.Memo,
		ImageURL:    p.ImageURL,
		SubImageURL: p.SubImageURL,
		Order:       p.Order.intPtr(),
		ChapterID:   p.ChapterID.int64Ptr(),
	}
}

type noteRequest struct {
	Content string `json:"content"`
}

// auth

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.loginLimiter) {
		s.audit(r, "login", "rate_limited")
		return
	}
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		s.audit(r, "login", "fail", "reason", "invalid_json")
		return
	}
	user, token, err := s.app.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.audit(r, "login", "fail", "username", req.Username, "reason", err.Error())
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	token, _ := bearerToken(r)
	if err := s.app.Logout(r.Context(), token); err != nil {
		s.audit(r, "logout", "fail", "user_id", id.UserID, "reason", err.Error())
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "logout", "success", "user_id", id.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	user, err := s.app.Me(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	users, err := s.app.ListUsers(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleLastPosition(w http.ResponseWriter, r *http.Request, id domain.Identity) {
	var req lastPositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.app.SaveLastPosition(r.Context(), id, req.LastChapterID.int64Ptr(), req.LastPageID.int64Ptr())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// chapters

func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := s.app.ListChapters(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chapters)
}

func (s *Server) handleCreateChapter(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	var req chapterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ch, err := s.app.CreateChapter(r.Context(), req.input())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ch, err := s.app.GetChapter(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleUpdateChapter(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req chapterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ch, err := s.app.UpdateChapter(r.Context(), id, req.input())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleDeleteChapter(w http.ResponseWriter, r *http.Request, caller domain.Identity) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.app.DeleteChapter(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "chapter.delete", "success", "user_id", caller.UserID, "chapter_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListChapterPages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	pages, err := s.app.ListChapterPages(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

// pages

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.app.ListPagesNumbered(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request, caller domain.Identity) {
	var req pageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	page, err := s.app.CreatePage(r.Context(), caller, req.input())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	page, err := s.app.GetPage(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req pageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	page, err := s.app.UpdatePage(r.Context(), id, req.input())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.app.DeletePage(r.Context(), id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// notes

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request, caller domain.Identity) {
	notes, err := s.app.ListNotes(r.Context(), caller)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request, caller domain.Identity) {
	var req noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := s.app.CreateNote(r.Context(), caller, req.Content)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request, caller domain.Identity) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	note, err := s.app.GetNote(r.Context(), caller, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request, caller domain.Identity) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := s.app.UpdateNote(r.Context(), caller, id, req.Content)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request, caller domain.Identity) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.app.DeleteNote(r.Context(), caller, id); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// upload & export

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, caller domain.Identity) {
	// Leave headroom for the multipart envelope; the app enforces the file limit itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.app.MaxUploadBytes()+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeAppError(w, r, app.ErrFileTooLarge)
			return
		}
		invalidRequest(w, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeAppError(w, r, app.ErrFileRequired)
		return
	}
	defer file.Close()
	url, err := s.app.Upload(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "upload", "success", "user_id", caller.UserID, "url", url)
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	logger := util.LoggerFromContext(r.Context())
	doc, stats, err := s.app.Export(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("export_cancelled")
			return
		}
		s.writeAppError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		s.writeAppError(w, r, fmt.Errorf("encode pdf: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.app.ExportFilename()))
	size := buf.Len()
	w.Header().Set("Content-Length", strconv.Itoa(size))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("export_write_failed", "err", err)
		return
	}
	logger.Info("export_completed",
		"chapters", stats.Chapters,
		"pages", stats.Pages,
		"images", stats.Images,
		"image_failures", stats.ImageFailures,
		"pdf_pages", doc.PageCount(),
		"bytes", size,
	)
}
