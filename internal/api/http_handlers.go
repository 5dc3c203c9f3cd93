package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	"travelbook/internal/auth"
	"travelbook/internal/models"
	"travelbook/internal/service"
	"travelbook/internal/validation"
)

// users

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form validation.Registration
	if !decodeJSON(w, r, &form) {
		return
	}

	user, err := s.svc.Users.Register(r.Context(), auth.FromContext(r.Context()), form)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"msg": fmt.Sprintf("Account %s created successfully", user.Username),
	})
}

func (s *HTTPServer) handleLoggedUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Users.LoggedUser(r.Context(), r.PathValue("username"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	res, err := s.svc.Users.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Users.Logout(r.Context(), auth.FromContext(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, "Logged out")
}

// catalog

func (s *HTTPServer) handlePlacesByCategory(w http.ResponseWriter, r *http.Request) {
	places, err := s.svc.Catalog.ListByCategory(r.Context(), r.PathValue("category"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, places)
}

func (s *HTTPServer) handlePlaceDetails(w http.ResponseWriter, r *http.Request) {
	place, err := s.svc.Catalog.GetPlace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, place)
}

// admin

func (s *HTTPServer) handleCreatePlace(w http.ResponseWriter, r *http.Request) {
	actor := auth.FromContext(r.Context())
	if r.PathValue("username") != actor.Username {
		writeServiceError(w, r, service.ErrForbidden)
		return
	}

	input, photo, ok := s.readPlaceForm(w, r)
	if !ok {
		return
	}

	place, err := s.svc.Catalog.CreatePlace(r.Context(), actor, input, photo)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": "Place added successfully",
		"place":   place,
	})
}

func (s *HTTPServer) handleUpdatePlace(w http.ResponseWriter, r *http.Request) {
	input, photo, ok := s.readPlaceForm(w, r)
	if !ok {
		return
	}

	place, err := s.svc.Catalog.UpdatePlace(r.Context(), auth.FromContext(r.Context()), r.PathValue("id"), input, photo)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": "Place updated successfully",
		"place":   place,
	})
}

func (s *HTTPServer) handleDeletePlace(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Catalog.DeletePlace(r.Context(), auth.FromContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, "Place deleted")
}

// readPlaceForm accepts the multipart admin form or a JSON body without photo.
func (s *HTTPServer) readPlaceForm(w http.ResponseWriter, r *http.Request) (models.PlaceInput, []byte, bool) {
	var input models.PlaceInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return input, nil, decodeJSON(w, r, &input)
	}

	maxBytes := s.cfg.HTTP.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeUploadError(w, err)
		return input, nil, false
	}

	input = models.PlaceInput{
		From:     r.FormValue("from"),
		To:       r.FormValue("to"),
		Price:    r.FormValue("price"),
		Details:  r.FormValue("details"),
		Category: r.FormValue("category"),
		BusType:  r.FormValue("busType"),
		Days:     r.FormValue("days"),
	}

	photo, err := formPhoto(r)
	if err != nil {
		writeUploadError(w, err)
		return input, nil, false
	}
	return input, photo, true
}

func formPhoto(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func writeUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		return
	}
	writeError(w, http.StatusBadRequest, "invalid multipart form")
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.ListUsers(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *HTTPServer) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	feedback, err := s.svc.Users.ListFeedback(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedback)
}

func (s *HTTPServer) handleUserTours(w http.ResponseWriter, r *http.Request) {
	tours, err := s.svc.Users.UserTours(r.Context(), auth.FromContext(r.Context()), r.PathValue("username"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tours)
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Users.DeleteUser(r.Context(), auth.FromContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, "User deleted")
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Bookings.DeleteBooking(r.Context(), auth.FromContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, "Booking deleted")
}

// handleExport streams an XLSX report of bookings created between from and
// to inclusive. Without parameters the last 30 days are exported.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.svc.Exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}

	now := time.Now().UTC()
	to, err := parseDateParam(r, "to", now.Truncate(24*time.Hour))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	from, err := parseDateParam(r, "from", to.AddDate(0, 0, -30))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	bookings, err := s.svc.Bookings.BookingsBetween(r.Context(), auth.FromContext(r.Context()), from, to.AddDate(0, 0, 1))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	filePath, err := s.svc.Exporter.ExportBookings(from, to, bookings)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	name := filePath[strings.LastIndexAny(filePath, `/\`)+1:]
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, filePath)
}

func parseDateParam(r *http.Request, name string, def time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, &validation.Error{Field: name, Message: "date must be YYYY-MM-DD"}
	}
	return t, nil
}

func (s *HTTPServer) handleFailedSync(w http.ResponseWriter, r *http.Request) {
	if s.svc.SyncTasks == nil {
		writeJSON(w, http.StatusOK, []models.SyncTask{})
		return
	}
	tasks, err := s.svc.SyncTasks.GetFailedSyncTasks(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// cart

func (s *HTTPServer) handleListCart(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Cart.List(r.Context(), auth.FromContext(r.Context()).Username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Cart.Clear(r.Context(), auth.FromContext(r.Context()).Username); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, "Cart cleared")
}

func (s *HTTPServer) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var item models.CartItem
	if !decodeJSON(w, r, &item) {
		return
	}

	added, err := s.svc.Cart.Add(r.Context(), auth.FromContext(r.Context()).Username, item)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *HTTPServer) handleGetCartItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.Cart.Get(r.Context(), auth.FromContext(r.Context()).Username, r.PathValue("key"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleRemoveCartItem answers with the remaining items.
func (s *HTTPServer) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	username := auth.FromContext(r.Context()).Username
	if err := s.svc.Cart.Remove(r.Context(), username, r.PathValue("key")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	items, err := s.svc.Cart.List(r.Context(), username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// payment

func (s *HTTPServer) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.PlaceID = r.PathValue("id")

	booking, payment, err := s.svc.Bookings.Checkout(r.Context(), auth.FromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": "Payment completed successfully",
		"booking": booking,
		"payment": payment,
	})
}

func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Bookings.MyBookings(r.Context(), auth.FromContext(r.Context()), r.PathValue("username"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *HTTPServer) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.Bookings.Transactions(r.Context(), auth.FromContext(r.Context()), r.PathValue("username"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *HTTPServer) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pdf, err := s.svc.Bookings.Receipt(r.Context(), auth.FromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "receipt_"+id+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// profile

func (s *HTTPServer) handleEditProfile(w http.ResponseWriter, r *http.Request) {
	var form service.ProfileUpdate
	if !decodeJSON(w, r, &form) {
		return
	}

	user, err := s.svc.Users.UpdateProfile(r.Context(), auth.FromContext(r.Context()), form)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"msg": "Profile updated", "user": user})
}

func (s *HTTPServer) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var form service.PasswordChange
	if !decodeJSON(w, r, &form) {
		return
	}

	if err := s.svc.Users.ChangePassword(r.Context(), auth.FromContext(r.Context()), form); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, "Password changed")
}

func (s *HTTPServer) handleRemovePhoto(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	// тело необязательно
	if r.ContentLength != 0 && !decodeJSON(w, r, &body) {
		return
	}

	if err := s.svc.Users.RemovePhoto(r.Context(), auth.FromContext(r.Context()), body.Username); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, "Photo removed")
}

func (s *HTTPServer) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.HTTP.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeUploadError(w, err)
		return
	}

	data, err := formPhoto(r)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "photo is required")
		return
	}

	name, err := s.svc.Users.UploadPhoto(r.Context(), auth.FromContext(r.Context()), data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Photo uploaded", "photo": name})
}

func (s *HTTPServer) handleAddFeedback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Feedback string `json:"fdbk"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if _, err := s.svc.Users.AddFeedback(r.Context(), auth.FromContext(r.Context()), body.Username, body.Feedback); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, "Thank you for your feedback")
}

func (s *HTTPServer) handleDeleteFeedback(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Users.DeleteFeedback(r.Context(), auth.FromContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, "Feedback deleted")
}

// misc

func (s *HTTPServer) handlePhoto(w http.ResponseWriter, r *http.Request) {
	if s.svc.Photos == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	name := r.PathValue("name")
	f, err := s.svc.Photos.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Ready != nil {
		if err := s.svc.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
