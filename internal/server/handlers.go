package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goliatone/go-runform/pkg/config"
	"github.com/goliatone/go-runform/pkg/form"
	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/orchestrator"
	"github.com/goliatone/go-runform/pkg/render"
	"github.com/goliatone/go-runform/pkg/renderers/vanilla"
	"github.com/goliatone/go-runform/pkg/session"
	"github.com/goliatone/go-runform/pkg/submit"
	"github.com/goliatone/go-runform/pkg/vision"
)

// Form post field names shared with the vanilla templates.
const (
	fieldAction   = "_action"
	fieldImageURL = "image_url"
	fieldImage    = "files"

	actionClear = "clear"
	actionRun   = "run"
)

var (
	errFileTooLarge = errors.New("server: file exceeds the image size limit")
	// errNoFileUploader rejects local files when no backend upload endpoint
	// is configured, since the backend could not resolve their ids.
	errNoFileUploader = errors.New("server: local uploads need a backend upload endpoint")
)

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.handler()))
	r.StaticFS("/assets", http.FS(vanilla.AssetsFS()))

	r.GET("/forms", s.listForms)
	r.GET("/forms/:id", s.showForm)
	r.POST("/forms/:id/sessions", s.createSession)

	sessions := r.Group("/sessions/:sid")
	sessions.GET("", s.showSession)
	sessions.POST("", s.postSessionForm)
	sessions.DELETE("", s.deleteSession)
	sessions.POST("/values", s.changeValues)
	sessions.POST("/reset", s.resetSession)
	sessions.POST("/files", s.addFile)
	sessions.POST("/files/:fid", s.updateFile)
	sessions.DELETE("/files/:fid", s.removeFile)
	sessions.POST("/run", s.runSession)
}

type formSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Variables   int    `json:"variables"`
	Vision      bool   `json:"vision"`
}

type runResponse struct {
	Session session.Snapshot    `json:"session"`
	Result  submit.Result       `json:"result"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"forms":    s.orch.Store().Len(),
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) listForms(c *gin.Context) {
	store := s.orch.Store()
	out := make([]formSummary, 0, store.Len())
	for _, id := range store.IDs() {
		f, ok := store.Form(id)
		if !ok {
			continue
		}
		out = append(out, formSummary{
			ID:          f.ID,
			Title:       f.Title,
			Description: f.Description,
			Variables:   len(f.Variables),
			Vision:      f.Vision.Enabled,
		})
	}
	c.JSON(http.StatusOK, gin.H{"forms": out})
}

func (s *Server) showForm(c *gin.Context) {
	f, ok := s.resolveForm(c)
	if !ok {
		return
	}
	s.render(c, http.StatusOK, renderInput{
		form:   f,
		values: form.Initial(f.Variables),
		action: "/forms/" + url.PathEscape(f.ID) + "/sessions",
	})
}

func (s *Server) createSession(c *gin.Context) {
	f, ok := s.resolveForm(c)
	if !ok {
		return
	}
	sess := s.sessions.Create(f)

	if !isJSON(c) {
		in := s.applyFormPost(c, sess)
		if in.handled {
			return
		}
		s.render(c, http.StatusCreated, in.renderInput)
		return
	}

	var body struct {
		Values map[string]string `json:"values"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			s.sessions.Delete(sess.ID())
			s.fail(c, http.StatusBadRequest, err)
			return
		}
	}
	if err := sess.ChangeAll(body.Values); err != nil {
		s.sessions.Delete(sess.ID())
		s.fail(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.Header("Location", "/sessions/"+sess.ID())
	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (s *Server) showSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	s.render(c, http.StatusOK, s.sessionView(sess))
}

func (s *Server) postSessionForm(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	in := s.applyFormPost(c, sess)
	if in.handled {
		return
	}
	status := http.StatusOK
	if len(in.errors) > 0 || len(in.formErrors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	s.render(c, status, in.renderInput)
}

func (s *Server) deleteSession(c *gin.Context) {
	if !s.sessions.Delete(c.Param("sid")) {
		s.fail(c, http.StatusNotFound, fmt.Errorf("%w: %s", session.ErrNotFound, c.Param("sid")))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) changeValues(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	values := map[string]string{}
	if isJSON(c) {
		var body struct {
			Values map[string]string `json:"values"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}
		values = body.Values
	} else {
		if err := c.Request.ParseForm(); err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}
		for key := range c.Request.PostForm {
			values[key] = c.Request.PostForm.Get(key)
		}
	}

	if errs := changeEach(sess, values); len(errs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": errs, "session": sess.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) resetSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.Reset()
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) addFile(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	var (
		id  string
		err error
	)
	if isJSON(c) {
		var body struct {
			URL  string `json:"url" binding:"required"`
			Name string `json:"name"`
		}
		if bindErr := c.ShouldBindJSON(&body); bindErr != nil {
			s.fail(c, http.StatusBadRequest, bindErr)
			return
		}
		id, err = s.beginRemote(sess, body.Name, body.URL)
	} else {
		header, formErr := c.FormFile("file")
		if formErr != nil {
			s.fail(c, http.StatusBadRequest, formErr)
			return
		}
		id, err = s.acceptLocalFile(c.Request.Context(), sess, header)
	}

	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, vision.ErrLimitReached) {
			status = http.StatusConflict
		}
		s.fail(c, status, err, gin.H{"file_id": id, "session": sess.Snapshot()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"file_id": id, "session": sess.Snapshot()})
}

func (s *Server) updateFile(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var body struct {
		Progress *int   `json:"progress"`
		Failed   bool   `json:"failed"`
		Complete bool   `json:"complete"`
		URL      string `json:"url"`
		// FileID is the id the backend issued for the finished upload.
		FileID string `json:"file_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	id := c.Param("fid")
	uploader := sess.Uploader()
	var err error
	switch {
	case body.Failed:
		err = uploader.Fail(id)
		s.countUpload(vision.TransferMethodLocalFile, "failed", err)
	case body.Complete && body.FileID == "":
		s.fail(c, http.StatusBadRequest, errors.New("server: file_id is required to complete an upload"))
		return
	case body.Complete:
		err = uploader.CompleteAs(id, body.FileID, body.URL)
		s.countUpload(vision.TransferMethodLocalFile, "complete", err)
	case body.Progress != nil:
		err = uploader.Progress(id, *body.Progress)
	default:
		s.fail(c, http.StatusBadRequest, errors.New("server: progress, failed or complete is required"))
		return
	}
	if err != nil {
		s.fail(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) removeFile(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.Uploader().Remove(c.Param("fid")); err != nil {
		s.fail(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) runSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var body struct {
		User         string `json:"user"`
		ResponseMode string `json:"response_mode"`
	}
	if c.Request.ContentLength != 0 && isJSON(c) {
		if err := c.ShouldBindJSON(&body); err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}
	}

	resp, err := s.run(c, sess, body.User, body.ResponseMode)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusBadGateway, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// run submits the session snapshot. Required variables are not checked.
func (s *Server) run(c *gin.Context, sess *session.Session, user, mode string) (runResponse, error) {
	snap := sess.Submit()
	if user == "" {
		user = s.cfg.User
	}
	payload := submit.Payload{
		Inputs:       snap.Values,
		Files:        snap.Files,
		ResponseMode: mode,
		User:         user,
	}

	result, err := s.submitter.Submit(c.Request.Context(), payload)
	resp := runResponse{Session: snap, Result: result}
	if err != nil {
		s.metrics.submissions.WithLabelValues(snap.FormID, "error").Inc()
		s.logger.Warn("run failed", zap.String("session", snap.ID), zap.String("form", snap.FormID), zap.Error(err))
		resp.Error = err.Error()
		resp.Errors = backendErrors(sess.Form(), result.Body)
		return resp, err
	}
	s.metrics.submissions.WithLabelValues(snap.FormID, "ok").Inc()
	s.logger.Info("run submitted", zap.String("session", snap.ID), zap.String("form", snap.FormID), zap.Int("status", result.StatusCode))
	return resp, nil
}

type formPostResult struct {
	renderInput
	handled bool
}

// applyFormPost handles a rendered form post: clear resets, otherwise
// changed values and attachments are applied and run submits.
func (s *Server) applyFormPost(c *gin.Context, sess *session.Session) formPostResult {
	if err := parsePost(c, s.uploadLimitBytes(sess.Form())); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return formPostResult{handled: true}
	}
	posted := c.Request.PostForm

	if posted.Get(fieldAction) == actionClear {
		sess.Reset()
		return formPostResult{renderInput: s.sessionView(sess)}
	}

	current := sess.Values()
	changes := map[string]string{}
	for _, desc := range sess.Form().Variables {
		if _, ok := posted[desc.Key]; !ok {
			continue
		}
		if value := posted.Get(desc.Key); value != current.Get(desc.Key) {
			changes[desc.Key] = value
		}
	}
	fieldErrs := changeEach(sess, changes)

	var formErrs []string
	if raw := strings.TrimSpace(posted.Get(fieldImageURL)); raw != "" {
		if _, err := s.beginRemote(sess, "", raw); err != nil {
			formErrs = append(formErrs, err.Error())
		}
	}
	if c.Request.MultipartForm != nil {
		for _, header := range c.Request.MultipartForm.File[fieldImage] {
			if header.Size == 0 {
				continue
			}
			if _, err := s.acceptLocalFile(c.Request.Context(), sess, header); err != nil {
				formErrs = append(formErrs, fmt.Sprintf("%s: %v", header.Filename, err))
			}
		}
	}

	if posted.Get(fieldAction) == actionRun && len(fieldErrs) == 0 {
		resp, err := s.run(c, sess, "", "")
		if err == nil {
			c.JSON(http.StatusOK, resp)
			return formPostResult{handled: true}
		}
		c.Error(err)
		formErrs = append(formErrs, err.Error())
		for key, messages := range resp.Errors {
			if fieldErrs == nil {
				fieldErrs = map[string][]string{}
			}
			fieldErrs[key] = append(fieldErrs[key], messages...)
		}
	}

	view := s.sessionView(sess)
	view.errors = fieldErrs
	view.formErrors = render.MergeFormErrors(nil, formErrs...)
	return formPostResult{renderInput: view}
}

func (s *Server) beginRemote(sess *session.Session, name, raw string) (string, error) {
	parsed, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		s.countUpload(vision.TransferMethodRemoteURL, "rejected", nil)
		return "", fmt.Errorf("server: invalid image url %q", raw)
	}
	id, err := sess.Uploader().Begin(vision.TransferMethodRemoteURL, name, parsed.String())
	if err != nil {
		s.countUpload(vision.TransferMethodRemoteURL, "rejected", nil)
		return "", err
	}
	s.countUpload(vision.TransferMethodRemoteURL, "complete", nil)
	return id, nil
}

// acceptLocalFile forwards a browser upload to the backend and tracks it
// under the id the backend returns. Oversized, non-image and rejected files
// are tracked and then marked failed, so they never reach the submission.
func (s *Server) acceptLocalFile(ctx context.Context, sess *session.Session, header *multipart.FileHeader) (string, error) {
	if s.files == nil {
		s.countUpload(vision.TransferMethodLocalFile, "rejected", nil)
		return "", errNoFileUploader
	}
	uploader := sess.Uploader()
	id, err := uploader.Begin(vision.TransferMethodLocalFile, header.Filename, "")
	if err != nil {
		s.countUpload(vision.TransferMethodLocalFile, "rejected", nil)
		return "", err
	}

	uploaded, reason := s.forwardFile(ctx, sess.Form(), header)
	if reason != nil {
		if err := uploader.Fail(id); err != nil {
			return id, err
		}
		s.countUpload(vision.TransferMethodLocalFile, "failed", nil)
		return id, reason
	}

	if err := uploader.CompleteAs(id, uploaded.ID, uploaded.URL); err != nil {
		return id, err
	}
	s.countUpload(vision.TransferMethodLocalFile, "complete", nil)
	return uploaded.ID, nil
}

func (s *Server) forwardFile(ctx context.Context, f model.Form, header *multipart.FileHeader) (submit.UploadedFile, error) {
	if limit := s.imageLimitBytes(f); limit > 0 && header.Size > limit {
		return submit.UploadedFile{}, errFileTooLarge
	}
	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return submit.UploadedFile{}, fmt.Errorf("server: %q is not an image", contentType)
	}

	body, err := header.Open()
	if err != nil {
		return submit.UploadedFile{}, fmt.Errorf("server: open upload: %w", err)
	}
	defer body.Close()

	uploaded, err := s.files.Upload(ctx, submit.File{
		Name:        header.Filename,
		ContentType: contentType,
		Body:        body,
		User:        s.cfg.User,
	})
	if err != nil {
		s.logger.Warn("backend upload failed", zap.String("name", header.Filename), zap.Error(err))
		return submit.UploadedFile{}, err
	}
	return uploaded, nil
}

func (s *Server) countUpload(method vision.TransferMethod, outcome string, err error) {
	if err != nil {
		return
	}
	s.metrics.uploads.WithLabelValues(string(method), outcome).Inc()
}

func (s *Server) imageLimitBytes(f model.Form) int64 {
	mb := f.Vision.ImageFileSizeLimitMB
	if mb <= 0 {
		mb = s.cfg.MaxUploadMB
	}
	return int64(mb) << 20
}

func (s *Server) uploadLimitBytes(f model.Form) int64 {
	limit := s.imageLimitBytes(f)
	if n := f.Vision.NumberLimits; n > 1 {
		limit *= int64(n)
	}
	if limit <= 0 {
		limit = 32 << 20
	}
	return limit
}

type renderInput struct {
	form       model.Form
	values     model.Values
	files      []vision.Attachment
	action     string
	hidden     map[string]string
	errors     map[string][]string
	formErrors []string
}

func (s *Server) sessionView(sess *session.Session) renderInput {
	snap := sess.Snapshot()
	return renderInput{
		form:   sess.Form(),
		values: snap.Values,
		files:  snap.Files,
		action: "/sessions/" + url.PathEscape(snap.ID),
		hidden: render.MergeHiddenFields(nil, render.SessionField(snap.ID)),
	}
}

func (s *Server) render(c *gin.Context, status int, in renderInput) {
	renderer, err := s.orch.RendererFor(c.Query("renderer"), c.GetHeader("Accept"))
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	out, err := renderer.Render(c.Request.Context(), in.form, render.RenderOptions{
		Values:       in.values,
		Errors:       in.errors,
		FormErrors:   in.formErrors,
		Attachments:  in.files,
		Action:       in.action,
		Method:       http.MethodPost,
		HiddenFields: in.hidden,
		Locale:       requestLocale(c),
		Translator:   s.translator,
	})
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(status, renderer.ContentType(), out)
}

func (s *Server) resolveForm(c *gin.Context) (model.Form, bool) {
	f, err := s.orch.Resolve(c.Request.Context(), orchestrator.Request{FormID: c.Param("id")})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, config.ErrFormNotFound) {
			status = http.StatusNotFound
		}
		s.fail(c, status, err)
		return model.Form{}, false
	}
	return f, true
}

func (s *Server) session(c *gin.Context) (*session.Session, bool) {
	sess, err := s.sessions.Get(c.Param("sid"))
	if err != nil {
		s.fail(c, http.StatusNotFound, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) fail(c *gin.Context, status int, err error, extra ...gin.H) {
	c.Error(err)
	body := gin.H{"error": err.Error()}
	for _, h := range extra {
		for key, value := range h {
			body[key] = value
		}
	}
	c.AbortWithStatusJSON(status, body)
}

// changeEach applies edits in key order and collects rejections per key.
func changeEach(sess *session.Session, values map[string]string) map[string][]string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs map[string][]string
	for _, key := range keys {
		if err := sess.Change(key, values[key]); err != nil {
			if errs == nil {
				errs = map[string][]string{}
			}
			errs[key] = append(errs[key], err.Error())
		}
	}
	return errs
}

// backendErrors maps a validation reply onto variable keys. It accepts
// {"errors": {...}} or a bare path-to-messages object.
func backendErrors(f model.Form, body json.RawMessage) map[string][]string {
	if len(body) == 0 {
		return nil
	}
	var wrapped struct {
		Errors map[string][]string `json:"errors"`
	}
	payload := map[string][]string{}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Errors) > 0 {
		payload = wrapped.Errors
	} else if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return render.MapErrorPayload(f, payload).Fields
}

func parsePost(c *gin.Context, maxBytes int64) error {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return c.Request.ParseMultipartForm(maxBytes)
	}
	return c.Request.ParseForm()
}

func isJSON(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEJSON
}

func requestLocale(c *gin.Context) string {
	if locale := strings.TrimSpace(c.Query("locale")); locale != "" {
		return locale
	}
	header := c.GetHeader("Accept-Language")
	if header == "" {
		return ""
	}
	first := strings.TrimSpace(strings.Split(header, ",")[0])
	if idx := strings.Index(first, ";"); idx >= 0 {
		first = first[:idx]
	}
	return first
}
