package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/corvids/surgo/core"
	"github.com/corvids/surgo/schema"
)

var (
	url       = flag.String("url", "ws://localhost:8000/rpc", "WebSocket URL of the database")
	namespace = flag.String("ns", "", "namespace to select")
	database  = flag.String("db", "", "database to select")
	username  = flag.String("user", "", "username for sign in")
	password  = flag.String("pass", "", "password for sign in")
	tableName = flag.String("table", "", "generate only this table; empty generates all")
	pkgName   = flag.String("pkg", "models", "package name for the generated code")
	outDir    = flag.String("out", "./models", "output directory")
	overwrite = flag.Bool("overwrite", false, "overwrite existing files")
)

const modelTemplate = `package {{.Package}}

{{if .NeedsTime}}import (
	"time"
)

{{end}}{{range .Structs}}// {{.Name}} maps the {{if .Table}}{{.Table}} table{{else}}{{.Comment}} object{{end}}.
type {{.Name}} struct {
{{- range .Fields}}
	{{.Name}} {{.Type}} ` + "`" + `surgo:"{{.Tag}}"` + "`" + `{{if .Comment}} // {{.Comment}}{{end}}
{{- end}}
}
{{if .Table}}
// TableName returns the database table name.
func (m *{{.Name}}) TableName() string {
	return "{{.Table}}"
}
{{end}}
{{end}}`

// goField is one struct field in the generated output.
type goField struct {
	Name    string
	Type    string
	Tag     string
	Comment string
}

// goStruct is either the table model or a nested object type.
type goStruct struct {
	Name    string
	Table   string
	Comment string
	Fields  []goField
}

type fileData struct {
	Package   string
	NeedsTime bool
	Structs   []goStruct
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	flag.Parse()

	if *namespace == "" || *database == "" {
		fmt.Println("usage: surgo-gen -ns <namespace> -db <database> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := core.Open(ctx, *url, &core.Options{
		Namespace: *namespace,
		Database:  *database,
		Username:  *username,
		Password:  *password,
		Timeout:   30 * time.Second,
	})
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer client.Close()

	live, err := client.Migrator().Introspect(ctx)
	if err != nil {
		log.Fatalf("introspect: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("create output directory: %v", err)
	}

	generated := 0
	for _, t := range live.Tables {
		if *tableName != "" && t.Name != *tableName {
			continue
		}
		if err := generateModel(t); err != nil {
			log.Printf("generate %s: %v", t.Name, err)
			continue
		}
		generated++
	}

	if *tableName != "" && generated == 0 {
		log.Fatalf("table %s not found in database", *tableName)
	}
	fmt.Printf("generated %d model(s) in %s\n", generated, *outDir)
}

// generateModel renders a table (and its nested object types) into one file.
func generateModel(t *schema.Table) error {
	fileName := filepath.Join(*outDir, strings.ToLower(t.Name)+".go")
	if _, err := os.Stat(fileName); err == nil && !*overwrite {
		log.Printf("%s exists, skipping (use -overwrite)", fileName)
		return nil
	}

	data := fileData{Package: *pkgName}
	buildStructs(t, &data)

	tmpl, err := template.New("model").Parse(modelTemplate)
	if err != nil {
		return err
	}

	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return err
	}

	log.Printf("generated %s -> %s", t.Name, fileName)
	return nil
}

// buildStructs appends the table struct and one struct per nested object
// field, depth first so nested types appear after their parent.
func buildStructs(t *schema.Table, data *fileData) {
	structName := snakeToCamel(t.Name, true)

	root := goStruct{
		Name:  structName,
		Table: t.Name,
		Fields: []goField{
			{Name: "ID", Type: "string", Tag: "name:id"},
		},
	}

	var nested []goStruct
	for _, f := range t.Fields {
		gf, children := convertField(structName, t, f)
		root.Fields = append(root.Fields, gf)
		nested = append(nested, children...)
	}

	data.Structs = append(data.Structs, root)
	data.Structs = append(data.Structs, nested...)
	for _, s := range data.Structs {
		for _, f := range s.Fields {
			if strings.Contains(f.Type, "time.Time") {
				data.NeedsTime = true
			}
		}
	}
}

func convertField(parent string, t *schema.Table, f *schema.Field) (goField, []goStruct) {
	gf := goField{
		Name:    snakeToCamel(f.Name, true),
		Tag:     fieldTag(t, f),
		Comment: f.Comment,
	}

	typ, nested := goType(parent, f)
	gf.Type = typ
	return gf, nested
}

// goType maps a schema field to a Go type, emitting nested struct types for
// objects that carry their own field list.
func goType(parent string, f *schema.Field) (string, []goStruct) {
	switch f.Type {
	case schema.TypeString:
		return "string", nil
	case schema.TypeNumber:
		return "float64", nil
	case schema.TypeBool:
		return "bool", nil
	case schema.TypeDatetime:
		return "time.Time", nil
	case schema.TypeRecord:
		return "string", nil
	case schema.TypeObject:
		if len(f.Fields) == 0 {
			return "map[string]any", nil
		}
		name := parent + snakeToCamel(f.Name, true)
		s := goStruct{Name: name, Comment: f.Name}
		var nested []goStruct
		for _, c := range f.Fields {
			gf, children := convertField(name, nil, c)
			s.Fields = append(s.Fields, gf)
			nested = append(nested, children...)
		}
		return name, append([]goStruct{s}, nested...)
	case schema.TypeArray:
		if f.Elem == nil {
			return "[]any", nil
		}
		elemType, nested := goType(parent, f.Elem)
		return "[]" + elemType, nested
	}
	return "any", nil
}

// fieldTag renders the surgo tag for a field. A nil table is passed for
// nested object members, which cannot carry indexes.
func fieldTag(t *schema.Table, f *schema.Field) string {
	tags := []string{"name:" + f.Name}

	ref := f.Reference
	policy := f.OnDelete
	if f.Type == schema.TypeArray && f.Elem != nil && f.Elem.Type == schema.TypeRecord {
		ref = f.Elem.Reference
		policy = f.Elem.OnDelete
	}
	if ref != "" {
		tags = append(tags, "reference:"+ref)
		if policy != schema.OnDeleteNone {
			tags = append(tags, "ondelete:"+strings.ToLower(policy.String()))
		}
	}

	if f.Required {
		tags = append(tags, "required")
	}
	if f.Readonly {
		tags = append(tags, "readonly")
	}
	if f.Default != "" {
		if f.DefaultAlways {
			tags = append(tags, "default_always:"+f.Default)
		} else {
			tags = append(tags, "default:"+f.Default)
		}
	}
	if f.Value != "" {
		tags = append(tags, "value:"+f.Value)
	}
	if f.MinLen != nil {
		tags = append(tags, "minlen:"+strconv.Itoa(*f.MinLen))
	}
	if f.MaxLen != nil {
		tags = append(tags, "maxlen:"+strconv.Itoa(*f.MaxLen))
	}
	if f.Min != nil {
		tags = append(tags, "min:"+strconv.FormatFloat(*f.Min, 'g', -1, 64))
	}
	if f.Max != nil {
		tags = append(tags, "max:"+strconv.FormatFloat(*f.Max, 'g', -1, 64))
	}
	if f.Pattern != "" {
		tags = append(tags, "pattern:"+f.Pattern)
	}
	if len(f.Enum) > 0 {
		tags = append(tags, "enum:("+strings.Join(f.Enum, ",")+")")
	}

	if t != nil {
		for _, idx := range t.Indexes {
			if len(idx.Fields) != 1 || idx.Fields[0] != f.Name || idx.Search != nil {
				continue
			}
			if idx.Unique && idx.Name == t.Name+"_"+f.Name+"_unique" {
				tags = append(tags, "unique")
			} else if !idx.Unique && idx.Name == t.Name+"_"+f.Name+"_idx" {
				tags = append(tags, "index")
			}
		}
	}

	return strings.Join(tags, ";")
}

func snakeToCamel(s string, upperFirst bool) string {
	parts := strings.Split(s, "_")
	for i := range parts {
		if i == 0 && !upperFirst {
			continue
		}
		if parts[i] == "id" {
			parts[i] = "ID"
		} else if len(parts[i]) > 0 {
			runes := []rune(parts[i])
			runes[0] = unicode.ToUpper(runes[0])
			parts[i] = string(runes)
		}
	}
	return strings.Join(parts, "")
}
