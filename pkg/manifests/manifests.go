// Package manifests renders the custom resources submitted to the cluster.
// The output is plain YAML text, callers decode it before submission. Every
// value is rendered as a quoted string, so that channels like 4.10 stay strings.
package manifests

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"text/template"
)

//go:embed templates/*.yaml
var templateFS embed.FS

var templates = template.Must(template.New("").
	Option("missingkey=error").
	Funcs(template.FuncMap{"quote": quote}).
	ParseFS(templateFS, "templates/*.yaml"))

// quote renders s as a JSON string, which YAML reads back as the same string.
func quote(s string) (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}

type OperatorGroupParams struct {
	Name             string
	Namespace        string
	TargetNamespaces []string
}

type SubscriptionParams struct {
	Name                string
	Namespace           string
	Package             string
	Channel             string
	StartingCSV         string
	Source              string
	SourceNamespace     string
	InstallPlanApproval string
}

type CatalogSourceParams struct {
	Name        string
	Namespace   string
	DisplayName string
	Image       string
	Publisher   string
}

// OperatorGroup renders an OperatorGroup. It targets its own namespace when
// no target namespaces are given.
func OperatorGroup(p OperatorGroupParams) (string, error) {
	if len(p.TargetNamespaces) == 0 {
		p.TargetNamespaces = []string{p.Namespace}
	}
	return render("operatorgroup.yaml", p)
}

// Subscription renders a Subscription. startingCSV is left out when empty and
// install plans are approved automatically unless told otherwise.
func Subscription(p SubscriptionParams) (string, error) {
	if p.InstallPlanApproval == "" {
		p.InstallPlanApproval = "Automatic"
	}
	return render("subscription.yaml", p)
}

func CatalogSource(p CatalogSourceParams) (string, error) {
	if p.DisplayName == "" {
		p.DisplayName = p.Name
	}
	if p.Publisher == "" {
		p.Publisher = p.DisplayName
	}
	return render("catalogsource.yaml", p)
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("error rendering %s: %w", name, err)
	}
	return buf.String(), nil
}
