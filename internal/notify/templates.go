package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// TemplateKey names an email template
type TemplateKey string

const (
	TemplateRegistration          TemplateKey = "registration"
	TemplateVendorRegistration    TemplateKey = "vendor_registration"
	TemplateRejection             TemplateKey = "rejection"
	TemplateOfferLetter           TemplateKey = "offer_letter"
	TemplateOnboardingResubmit    TemplateKey = "onboarding_resubmission"
	TemplateInterviewCandidate    TemplateKey = "interview_candidate"
	TemplateInterviewCandidateNL  TemplateKey = "interview_candidate_no_link"
	TemplateInterviewInterviewer  TemplateKey = "interview_interviewer"
	TemplateInterviewScreening    TemplateKey = "interview_interviewer_screening"
	TemplateRescheduleCandidate   TemplateKey = "reschedule_candidate"
	TemplateRescheduleInterviewer TemplateKey = "reschedule_interviewer"
	TemplateRoundApproved         TemplateKey = "round_approved"
	TemplateRoundRejected         TemplateKey = "round_rejected"
)

// Template is the source of one email: subject and text are text/template,
// HTML is html/template. All three see the same flat variable map.
type Template struct {
	Subject string
	Text    string
	HTML    string
}

// Rendered is a template executed against its variables
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Renderer turns a template key and flat variables into email content
type Renderer interface {
	Render(key TemplateKey, vars map[string]string) (Rendered, error)
}

type compiled struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// TemplateRenderer renders the built-in templates plus any overrides
type TemplateRenderer struct {
	templates map[TemplateKey]*compiled
}

// NewTemplateRenderer parses the built-in templates, replacing any whose key
// appears in overrides.
func NewTemplateRenderer(overrides map[TemplateKey]Template) (*TemplateRenderer, error) {
	sources := make(map[TemplateKey]Template, len(builtinTemplates)+len(overrides))
	for k, t := range builtinTemplates {
		sources[k] = t
	}
	for k, t := range overrides {
		sources[k] = t
	}

	r := &TemplateRenderer{templates: make(map[TemplateKey]*compiled, len(sources))}
	for key, src := range sources {
		c := &compiled{}
		var err error
		if c.subject, err = texttemplate.New(string(key) + ".subject").Option("missingkey=zero").Parse(src.Subject); err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", key, err)
		}
		if c.text, err = texttemplate.New(string(key) + ".text").Option("missingkey=zero").Parse(src.Text); err != nil {
			return nil, fmt.Errorf("parse %s text: %w", key, err)
		}
		if c.html, err = htmltemplate.New(string(key) + ".html").Option("missingkey=zero").Parse(src.HTML); err != nil {
			return nil, fmt.Errorf("parse %s html: %w", key, err)
		}
		r.templates[key] = c
	}
	return r, nil
}

// DefaultRenderer returns a renderer over the built-in templates only
func DefaultRenderer() *TemplateRenderer {
	r, err := NewTemplateRenderer(nil)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *TemplateRenderer) Render(key TemplateKey, vars map[string]string) (Rendered, error) {
	c, ok := r.templates[key]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown email template %q", key)
	}
	if vars == nil {
		vars = map[string]string{}
	}

	var out Rendered
	var buf bytes.Buffer
	if err := c.subject.Execute(&buf, vars); err != nil {
		return Rendered{}, fmt.Errorf("render %s subject: %w", key, err)
	}
	out.Subject = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := c.text.Execute(&buf, vars); err != nil {
		return Rendered{}, fmt.Errorf("render %s text: %w", key, err)
	}
	out.Text = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := c.html.Execute(&buf, vars); err != nil {
		return Rendered{}, fmt.Errorf("render %s html: %w", key, err)
	}
	out.HTML = strings.TrimSpace(buf.String())
	return out, nil
}

var builtinTemplates = map[TemplateKey]Template{
	TemplateRegistration: {
		Subject: `Thank you for registering, {{.name}}`,
		Text:    "Hi {{.name}},\n\nWe have received your profile. Our talent team will reach out if there is a suitable opening.",
		HTML:    `<p>Hi {{.name}},</p><p>We have received your profile. Our talent team will reach out if there is a suitable opening.</p>`,
	},
	TemplateVendorRegistration: {
		Subject: `Your profile was submitted by {{.vendor_name}}`,
		Text:    "Hi {{.name}},\n\n{{.vendor_name}} has submitted your profile to us. We will contact you about next steps.",
		HTML:    `<p>Hi {{.name}},</p><p>{{.vendor_name}} has submitted your profile to us. We will contact you about next steps.</p>`,
	},
	TemplateRejection: {
		Subject: `Update on your application`,
		Text:    "Hi {{.name}},\n\nThank you for your time. We will not be moving forward with your application at this point.",
		HTML:    `<p>Hi {{.name}},</p><p>Thank you for your time. We will not be moving forward with your application at this point.</p>`,
	},
	TemplateOfferLetter: {
		Subject: `Offer letter: {{.designation}}`,
		Text:    "Hi {{.name}},\n\nPlease find your offer letter for the role of {{.designation}} attached. Your joining date is {{.joining_date}}.\n\nComplete your onboarding form: {{.onboarding_link}}",
		HTML:    `<p>Hi {{.name}},</p><p>Please find your offer letter for the role of <b>{{.designation}}</b> attached. Your joining date is {{.joining_date}}.</p><p><a href="{{.onboarding_link}}">Complete your onboarding form</a></p>`,
	},
	TemplateOnboardingResubmit: {
		Subject: `Please resubmit your onboarding form`,
		Text:    "Hi {{.name}},\n\nWe need you to resubmit your onboarding form.\nReason: {{.reason}}\n\n{{.onboarding_link}}",
		HTML:    `<p>Hi {{.name}},</p><p>We need you to resubmit your onboarding form.</p><p>Reason: {{.reason}}</p><p><a href="{{.onboarding_link}}">Open the onboarding form</a></p>`,
	},
	TemplateInterviewCandidate: {
		Subject: `{{.round}} interview with {{.organization}}`,
		Text:    "Hi {{.name}},\n\nYour {{.round}} interview is scheduled for {{.date}}.\nJoin here: {{.meeting_link}}",
		HTML:    `<p>Hi {{.name}},</p><p>Your {{.round}} interview is scheduled for {{.date}}.</p><p><a href="{{.meeting_link}}">Join the meeting</a></p>`,
	},
	TemplateInterviewCandidateNL: {
		Subject: `{{.round}} with {{.organization}}`,
		Text:    "Hi {{.name}},\n\nYour {{.round}} is scheduled for {{.date}}. Our team will call you on your registered number.",
		HTML:    `<p>Hi {{.name}},</p><p>Your {{.round}} is scheduled for {{.date}}. Our team will call you on your registered number.</p>`,
	},
	TemplateInterviewInterviewer: {
		Subject: `{{.round}} interview: {{.candidate_name}}`,
		Text:    "Hi {{.interviewer_name}},\n\nYou are interviewing {{.candidate_name}} on {{.date}}.\nMeeting: {{.meeting_link}}\nResume: {{.resume}}\nSubmit feedback: {{.feedback_link}}",
		HTML:    `<p>Hi {{.interviewer_name}},</p><p>You are interviewing {{.candidate_name}} on {{.date}}.</p><p><a href="{{.meeting_link}}">Meeting</a> | <a href="{{.resume}}">Resume</a></p><p><a href="{{.feedback_link}}">Submit feedback</a></p>`,
	},
	TemplateInterviewScreening: {
		Subject: `{{.round}}: {{.candidate_name}}`,
		Text:    "Hi {{.interviewer_name}},\n\nPlease contact {{.candidate_name}} on {{.date}}.\nEmail: {{.candidate_email}}\nMobile: {{.candidate_mobile}}\nResume: {{.resume}}\nRecord the outcome: {{.feedback_link}}",
		HTML:    `<p>Hi {{.interviewer_name}},</p><p>Please contact {{.candidate_name}} on {{.date}}.</p><ul><li>Email: {{.candidate_email}}</li><li>Mobile: {{.candidate_mobile}}</li><li><a href="{{.resume}}">Resume</a></li></ul><p><a href="{{.feedback_link}}">Record the outcome</a></p>`,
	},
	TemplateRescheduleCandidate: {
		Subject: `Rescheduled: {{.round}} interview`,
		Text:    "Hi {{.name}},\n\nYour {{.round}} interview has moved to {{.date}}.\nJoin here: {{.meeting_link}}",
		HTML:    `<p>Hi {{.name}},</p><p>Your {{.round}} interview has moved to {{.date}}.</p><p><a href="{{.meeting_link}}">Join the meeting</a></p>`,
	},
	TemplateRescheduleInterviewer: {
		Subject: `Rescheduled: {{.round}} with {{.candidate_name}}`,
		Text:    "Hi {{.interviewer_name}},\n\nThe {{.round}} with {{.candidate_name}} is now on {{.date}}.{{if .meeting_link}}\nMeeting: {{.meeting_link}}{{end}}\nSubmit feedback: {{.feedback_link}}",
		HTML:    `<p>Hi {{.interviewer_name}},</p><p>The {{.round}} with {{.candidate_name}} is now on {{.date}}.</p>{{if .meeting_link}}<p><a href="{{.meeting_link}}">Meeting</a></p>{{end}}<p><a href="{{.feedback_link}}">Submit feedback</a></p>`,
	},
	TemplateRoundApproved: {
		Subject: `You cleared the {{.round}} round`,
		Text:    "Hi {{.name}},\n\nCongratulations, you have cleared the {{.round}} round with {{.organization}}. We will share the next steps soon.",
		HTML:    `<p>Hi {{.name}},</p><p>Congratulations, you have cleared the {{.round}} round with {{.organization}}. We will share the next steps soon.</p>`,
	},
	TemplateRoundRejected: {
		Subject: `Update on your {{.round}} round`,
		Text:    "Hi {{.name}},\n\nThank you for interviewing with {{.organization}}. We will not be moving forward after the {{.round}} round.",
		HTML:    `<p>Hi {{.name}},</p><p>Thank you for interviewing with {{.organization}}. We will not be moving forward after the {{.round}} round.</p>`,
	},
}
