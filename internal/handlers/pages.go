package handlers

import (
	"html/template"
	"io"
	"membership-service/internal/models"
	"time"
)

type formField struct {
	Label string
	Path  string
	Large bool
	Value string
}

type formSection struct {
	Title  string
	Fields []formField
}

// profileForm lists the editable fields of a profile, grouped as displayed.
func profileForm() []formSection {
	sections := []formSection{
		{
			Title: "Personal",
			Fields: []formField{
				{Label: "First name", Path: "personal.firstname"},
				{Label: "Family name", Path: "personal.familyname"},
				{Label: "Birth date", Path: "personal.birthdate"},
			},
		},
		{
			Title: "Contact",
			Fields: []formField{
				{Label: "Email", Path: "contact.email"},
				{Label: "Phone", Path: "contact.phone"},
				{Label: "Home address", Path: "contact.domicile", Large: true},
				{Label: "Postal address (if different)", Path: "contact.post", Large: true},
			},
		},
	}
	for _, i := range []string{"0", "1"} {
		prefix := "emergency." + i + "."
		sections = append(sections, formSection{
			Title: "Emergency contact " + i,
			Fields: []formField{
				{Label: "Relationship", Path: prefix + "relationship"},
				{Label: "First name", Path: prefix + "firstname"},
				{Label: "Family name", Path: prefix + "familyname"},
				{Label: "Mobile", Path: prefix + "gsm"},
				{Label: "Alternative phone", Path: prefix + "phone"},
			},
		})
	}
	return sections
}

type profilePage struct {
	Identifier string
	Created    string
	Message    string
	Sections   []formSection
}

type eventEntry struct {
	Name       string `json:"name"`
	Registered bool   `json:"registered"`
}

type indexPage struct {
	Identifier    string
	Events        []eventEntry
	GoogleEnabled bool
}

const layoutTemplate = `{{define "head"}}<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.}}</title>
</head>
<body>{{end}}
{{define "foot"}}</body>
</html>{{end}}`

const profileTemplate = `{{template "head" "Member profile"}}
<header>
<a href="/">Back</a>
<h1>Member profile</h1>
{{with .Message}}<div class="message">{{.}}</div>{{end}}
</header>
<form action="/profile" method="POST">
<section><input type="submit" value="Save"></section>
<section>
<h2>Account</h2>
<ul>
<li>Identifier: <span id="identifier">{{.Identifier}}</span></li>
<li>Created: {{.Created}}</li>
</ul>
</section>
{{range .Sections}}<section>
<h2>{{.Title}}</h2>
<ul>
{{range .Fields}}<li>{{.Label}} {{if .Large}}<br><textarea name="{{.Path}}">{{.Value}}</textarea>{{else}}<input name="{{.Path}}" value="{{.Value}}">{{end}}</li>
{{end}}</ul>
</section>
{{end}}<section><input type="submit" value="Save"></section>
</form>
{{template "foot"}}`

const indexTemplate = `{{template "head" "Members"}}
{{if .Identifier}}<header>
<h1>Welcome <span id="identifier">{{.Identifier}}</span></h1>
<a href="/profile">My profile</a>
<a href="/persona/signout">Sign out</a>
</header>
<section>
<h2>Events</h2>
<ul>
{{range .Events}}<li>{{.Name}} {{if .Registered}}(registered){{else}}<form action="/register" method="POST"><input type="hidden" name="event" value="{{.Name}}"><input type="submit" value="Register"></form>{{end}}</li>
{{else}}<li>No open events.</li>
{{end}}</ul>
</section>
{{else}}<header>
<h1>Members</h1>
<p>Sign in to edit your profile and register for events.</p>
{{if .GoogleEnabled}}<a href="/auth/google/login">Sign in with Google</a>{{end}}
</header>
{{end}}{{template "foot"}}`

var pages = template.Must(template.New("layout").Parse(layoutTemplate))

func init() {
	template.Must(pages.New("profile").Parse(profileTemplate))
	template.Must(pages.New("index").Parse(indexTemplate))
}

func renderProfile(w io.Writer, profile *models.Profile, message string) error {
	page := profilePage{
		Identifier: profile.Get(models.PathAccountID),
		Message:    message,
		Sections:   profileForm(),
	}
	if created, err := profile.CreatedAt(); err == nil {
		page.Created = created.Format(time.ANSIC)
	}
	for i := range page.Sections {
		for j := range page.Sections[i].Fields {
			field := &page.Sections[i].Fields[j]
			field.Value = profile.Get(field.Path)
		}
	}
	return pages.ExecuteTemplate(w, "profile", page)
}

func renderIndex(w io.Writer, page indexPage) error {
	return pages.ExecuteTemplate(w, "index", page)
}
