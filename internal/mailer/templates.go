package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

var (
	verificationTmpl = template.Must(template.New("verification").Parse(`<html>
  <body>
    <h2>AI 챗봇 서비스 이메일 인증</h2>
    <p>안녕하세요, AI 챗봇 서비스에 가입해 주셔서 감사합니다.</p>
    <p>아래 링크를 클릭하여 이메일 인증을 완료해주세요:</p>
    <p><a href="{{.URL}}">이메일 인증하기</a></p>
    <p>링크는 24시간 동안 유효합니다.</p>
    <p>감사합니다.</p>
  </body>
</html>`))

	resetTmpl = template.Must(template.New("reset").Parse(`<html>
  <body>
    <h2>AI 챗봇 서비스 비밀번호 재설정</h2>
    <p>안녕하세요,</p>
    <p>비밀번호 재설정을 요청하셨습니다. 아래 링크를 클릭하여 비밀번호를 재설정하세요:</p>
    <p><a href="{{.URL}}">비밀번호 재설정하기</a></p>
    <p>링크는 1시간 동안 유효합니다.</p>
    <p>요청하지 않으셨다면 이 이메일을 무시하시기 바랍니다.</p>
    <p>감사합니다.</p>
  </body>
</html>`))

	invitationTmpl = template.Must(template.New("invitation").Parse(`<html>
  <body>
    <h2>AI 챗봇 서비스 그룹 초대</h2>
    <p>안녕하세요,</p>
    <p><strong>{{.Inviter}}</strong>님이 <strong>{{.Group}}</strong> 그룹에 초대했습니다.</p>
    <p>아래 링크를 클릭하여 초대를 수락하세요:</p>
    <p><a href="{{.URL}}">초대 수락하기</a></p>
    <p>링크는 7일 동안 유효합니다.</p>
    <p>감사합니다.</p>
  </body>
</html>`))
)

// Composer renders the transactional messages with links into the frontend.
type Composer struct {
	frontendURL string
}

// NewComposer creates a Composer for the given frontend base URL.
func NewComposer(frontendURL string) *Composer {
	return &Composer{frontendURL: strings.TrimRight(frontendURL, "/")}
}

func (c *Composer) link(path, token string) string {
	return c.frontendURL + path + "?token=" + url.QueryEscape(token)
}

// Verification renders the email verification message.
func (c *Composer) Verification(to, token string) (Message, error) {
	u := c.link("/verify-email", token)
	html, err := render(verificationTmpl, map[string]string{"URL": u})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "AI 챗봇 서비스 이메일 인증",
		HTML:    html,
		Text:    "이메일 인증 링크: " + u,
	}, nil
}

// PasswordReset renders the password reset message.
func (c *Composer) PasswordReset(to, token string) (Message, error) {
	u := c.link("/reset-password", token)
	html, err := render(resetTmpl, map[string]string{"URL": u})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "AI 챗봇 서비스 비밀번호 재설정",
		HTML:    html,
		Text:    "비밀번호 재설정 링크: " + u,
	}, nil
}

// Invitation renders the group invitation message.
func (c *Composer) Invitation(to, inviter, group, token string) (Message, error) {
	u := c.link("/accept-invitation", token)
	html, err := render(invitationTmpl, map[string]string{"URL": u, "Inviter": inviter, "Group": group})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("AI 챗봇 서비스: %s님이 %s 그룹에 초대했습니다", inviter, group),
		HTML:    html,
		Text:    "초대 수락 링크: " + u,
	}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
