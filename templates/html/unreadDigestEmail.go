package templates

import (
	"fmt"
	"html"
	"strings"
)

// UnreadRoomLine is one row of the unread digest email, covering a
// single chat room the recipient has fallen behind in.
type UnreadRoomLine struct {
	RoomName    string
	UnreadCount int64
	LastPreview string
}

// RenderUnreadDigestEmail generates the HTML for the daily unread
// messages digest sent to members who have unread chat activity.
func RenderUnreadDigestEmail(nickname string, lines []UnreadRoomLine) string {
	var rows strings.Builder
	for _, line := range lines {
		preview := line.LastPreview
		if preview == "" {
			preview = "New messages are waiting for you."
		}
		rows.WriteString(fmt.Sprintf(`
        <div class="room-row">
          <div class="room-name">%s <span class="badge">%d</span></div>
          <div class="room-preview">%s</div>
        </div>`, html.EscapeString(line.RoomName), line.UnreadCount, html.EscapeString(preview)))
	}

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>You have unread messages - Itda</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #faf7f2; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: linear-gradient(135deg, #ff8a5c 0%%, #ff5e62 100%%); padding: 40px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 24px; font-weight: 700; }
    .content { padding: 40px 30px; color: #374151; }
    .content h2 { color: #111827; margin-top: 0; }
    .room-row { border: 1px solid rgba(0,0,0,0.08); border-radius: 12px; padding: 16px 20px; margin: 12px 0; }
    .room-name { color: #111827; font-weight: 700; font-size: 15px; }
    .room-preview { color: #6b7280; font-size: 13px; margin-top: 6px; }
    .badge { display: inline-block; background: #ff5e62; color: #fff; border-radius: 10px; padding: 2px 8px; font-size: 12px; margin-left: 6px; }
    .cta-button { display: inline-block; background: linear-gradient(135deg, #ff8a5c 0%%, #ff5e62 100%%); color: #fff; padding: 14px 28px; border-radius: 8px; text-decoration: none; font-weight: 700; margin-top: 20px; }
    .footer { padding: 30px; text-align: center; color: #9ca3af; font-size: 12px; border-top: 1px solid rgba(0,0,0,0.08); }
    .footer a { color: #ff5e62; text-decoration: none; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>💬 You have unread messages</h1>
    </div>
    <div class="content">
      <h2>Hi %s,</h2>
      <p>Your meetup chats kept going while you were away. Here is what you missed:</p>
      %s
      <a href="https://www.itda-meet.com/chats" class="cta-button">Open My Chats</a>
    </div>
    <div class="footer">
      <p>&copy; Itda | <a href="https://www.itda-meet.com">itda-meet.com</a></p>
      <p><a href="https://www.itda-meet.com/contact-us">Contact Support</a></p>
    </div>
  </div>
</body>
</html>`, html.EscapeString(nickname), rows.String())
}
