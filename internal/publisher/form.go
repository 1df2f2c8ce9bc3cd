package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelcast/internal/services"
)

type formInput struct {
	videoID     string
	title       string
	description string
	tags        string
	thumbnail   string
	fileName    string
	fileSize    int64
}

// fileMeta mirrors the upload widget's metadata block, fields in widget order.
type fileMeta struct {
	Name      string `json:"name"`
	Modified  int64  `json:"modified"`
	Size      int64  `json:"size"`
	Type      string `json:"type"`
	TimeStart int64  `json:"time_start"`
	Speed     int64  `json:"speed"`
	NumChunks int    `json:"num_chunks"`
	TimeEnd   int64  `json:"time_end"`
}

// buildFileMeta reports a single-chunk upload that finished at now and took
// simulatedUploadTime.
func buildFileMeta(name string, size int64, now time.Time) fileMeta {
	end := now.UnixMilli()
	start := now.Add(-simulatedUploadTime).UnixMilli()
	seconds := int64(simulatedUploadTime / time.Second)
	return fileMeta{
		Name:      name,
		Modified:  end,
		Size:      size,
		Type:      "video/mp4",
		TimeStart: start,
		Speed:     size / seconds,
		NumChunks: 1,
		TimeEnd:   end,
	}
}

func (c *Client) buildForm(in formInput) (url.Values, error) {
	meta, err := json.Marshal(buildFileMeta(in.fileName, in.fileSize, c.now()))
	if err != nil {
		return nil, fmt.Errorf("encode file_meta: %w", err)
	}
	form := url.Values{}
	form.Set("title", in.title)
	form.Set("description", in.description)
	form.Set("video[]", "0-"+in.videoID+".mp4")
	form.Set("featured", "6")
	form.Set("rights", "1")
	form.Set("terms", "1")
	for _, blank := range []string{"facebookUpload", "vimeoUpload", "infoWho", "infoWhen", "infoWhere", "infoExtUser"} {
		form.Set(blank, "")
	}
	form.Set("tags", in.tags)
	form.Set("channelId", c.settings.ChannelID)
	form.Set("siteChannelId", c.settings.SiteChannelID)
	form.Set("mediaChannelId", c.settings.MediaChannelID)
	form.Set("isGamblingRelated", "false")
	form.Set("set_default_channel_id", "1")
	form.Set("sendPush", "0")
	form.Set("setFeaturedForUser", "1")
	form.Set("setFeaturedForChannel", "1")
	form.Set("visibility", "public")
	form.Set("availability", "free")
	form.Set("file_meta", string(meta))
	form.Set("thumb", in.thumbnail)
	return form, nil
}

// submit posts the publish form and returns the public URL found in the
// response, if any.
func (c *Client) submit(ctx context.Context, in formInput) (string, error) {
	form, err := c.buildForm(in)
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint(url.Values{"form": {"1"}}), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", services.Mark(services.ErrTransient, fmt.Errorf("Failed to publish video to Rumble: %w", err))
	}
	defer resp.Body.Close()
	body := readBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", services.Mark(services.ErrExternalTool, errors.New("Failed to publish video to Rumble"))
	}
	return extractURL(body, c.settings.URLDomain), nil
}

// extractURL returns the first URL-like token in body that mentions domain.
func extractURL(body, domain string) string {
	if domain == "" {
		return ""
	}
	body = strings.ReplaceAll(body, `\/`, "/")
	idx := strings.Index(body, domain)
	if idx < 0 {
		return ""
	}
	isDelim := func(b byte) bool {
		switch b {
		case ' ', '\t', '\r', '\n', '"', '\'', '<', '>', '(', ')', ',', '[', ']', '{', '}':
			return true
		}
		return false
	}
	start := idx
	for start > 0 && !isDelim(body[start-1]) {
		start--
	}
	end := idx + len(domain)
	for end < len(body) && !isDelim(body[end]) {
		end++
	}
	token := body[start:end]
	if !strings.Contains(token, "://") {
		token = "https://" + strings.TrimLeft(token, "/")
	}
	return token
}
