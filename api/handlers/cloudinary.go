package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/itda-project/itda-chat-api/chat"
	"github.com/itda-project/itda-chat-api/config"
)

// CloudinaryHandler handles Cloudinary related requests
type CloudinaryHandler struct {
	Core *chat.Core
}

// GenerateSignature generates a signature for Cloudinary uploads
func (c CloudinaryHandler) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	uploadPreset := os.Getenv("CLOUDINARY_UPLOAD_PRESET")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")

	// Create the signature
	h := hmac.New(sha1.New, []byte(apiSecret))
	h.Write([]byte("timestamp=" + timestamp + "&upload_preset=" + uploadPreset))
	signature := hex.EncodeToString(h.Sum(nil))

	// Respond with the timestamp and signature
	response := map[string]string{
		"timestamp": timestamp,
		"signature": signature,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RoomImageHandler uploads a room image to Cloudinary and stores the
// resulting URL on the room. Only the HOST may change the image.
func (c CloudinaryHandler) RoomImageHandler(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromRequest(w, r)
	if !ok {
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		config.ErrorStatus("user_id query parameter is required", http.StatusBadRequest, w, errMissingUserID)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		config.ErrorStatus("failed to read image from request", http.StatusBadRequest, w, err)
		return
	}
	defer file.Close()

	cld, err := cloudinary.NewFromParams(
		os.Getenv("CLOUDINARY_CLOUD_NAME"),
		os.Getenv("CLOUDINARY_API_KEY"),
		os.Getenv("CLOUDINARY_API_SECRET"),
	)
	if err != nil {
		config.ErrorStatus("failed to initialize cloudinary", http.StatusInternalServerError, w, err)
		return
	}

	res, err := cld.Upload.Upload(context.Background(), file, uploader.UploadParams{
		PublicID: "chatrooms/" + roomID.Hex(),
		Folder:   "chatrooms",
	})
	if err != nil {
		config.ErrorStatus("failed to upload image", http.StatusInternalServerError, w, err)
		return
	}

	if err := c.Core.Store.SetRoomImage(context.Background(), roomID, userID, res.SecureURL); err != nil {
		config.ErrorStatus("failed to set room image", statusForError(err), w, err)
		return
	}

	writeJSON(w, map[string]string{
		"imageUrl": res.SecureURL,
		"fileName": header.Filename,
	})
}
