// Package mitre maps alert text onto ATT&CK techniques using an ordered
// keyword table and persists the resulting technique references and edges.
package mitre

import (
	"context"
	"strings"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/threatrelay/advisory-backend/database"
	"github.com/threatrelay/advisory-backend/model"
)

// Match is one technique hit with its confidence score
type Match struct {
	Technique  model.TechniqueRef
	Confidence float64
}

// keywordRule binds a set of trigger keywords to a technique. Rules are
// evaluated in table order and every rule that fires contributes a match.
type keywordRule struct {
	keywords   []string
	technique  model.TechniqueRef
	confidence float64
}

var keywordTable = []keywordRule{
	{
		keywords:   []string{"phishing", "spearphishing", "malicious attachment"},
		technique:  model.TechniqueRef{TechniqueID: "T1566", Name: "Phishing", Tactic: "Initial Access"},
		confidence: 0.85,
	},
	{
		keywords:   []string{"ransomware", "encrypt files", "data encrypted for impact"},
		technique:  model.TechniqueRef{TechniqueID: "T1486", Name: "Data Encrypted for Impact", Tactic: "Impact"},
		confidence: 0.90,
	},
	{
		keywords:   []string{"powershell", "command interpreter", "shell script", "command injection"},
		technique:  model.TechniqueRef{TechniqueID: "T1059", Name: "Command and Scripting Interpreter", Tactic: "Execution"},
		confidence: 0.80,
	},
	{
		keywords:   []string{"privilege escalation", "elevation of privilege", "escalate privileges"},
		technique:  model.TechniqueRef{TechniqueID: "T1068", Name: "Exploitation for Privilege Escalation", Tactic: "Privilege Escalation"},
		confidence: 0.80,
	},
	{
		keywords:   []string{"credential dump", "lsass", "password hash", "mimikatz"},
		technique:  model.TechniqueRef{TechniqueID: "T1003", Name: "OS Credential Dumping", Tactic: "Credential Access"},
		confidence: 0.85,
	},
	{
		keywords:   []string{"lateral movement", "remote desktop", "smb", "rdp"},
		technique:  model.TechniqueRef{TechniqueID: "T1021", Name: "Remote Services", Tactic: "Lateral Movement"},
		confidence: 0.75,
	},
	{
		keywords:   []string{"sql injection", "remote code execution", "deserialization", "web shell"},
		technique:  model.TechniqueRef{TechniqueID: "T1190", Name: "Exploit Public-Facing Application", Tactic: "Initial Access"},
		confidence: 0.80,
	},
	{
		keywords:   []string{"denial of service", "ddos", "amplification"},
		technique:  model.TechniqueRef{TechniqueID: "T1498", Name: "Network Denial of Service", Tactic: "Impact"},
		confidence: 0.85,
	},
	{
		keywords:   []string{"command and control", "c2 server", "beacon", "exfiltration"},
		technique:  model.TechniqueRef{TechniqueID: "T1071", Name: "Application Layer Protocol", Tactic: "Command and Control"},
		confidence: 0.70,
	},
	{
		keywords:   []string{"supply chain", "dependency confusion", "typosquatting", "malicious package"},
		technique:  model.TechniqueRef{TechniqueID: "T1195", Name: "Supply Chain Compromise", Tactic: "Initial Access"},
		confidence: 0.85,
	},
}

// defaultMatch is returned when no keyword rule fires. Most advisories in
// the feeds describe exploitable flaws in exposed software, so the generic
// public-facing exploitation technique is the safest floor.
var defaultMatch = Match{
	Technique:  model.TechniqueRef{TechniqueID: "T1190", Name: "Exploit Public-Facing Application", Tactic: "Initial Access"},
	Confidence: 0.50,
}

// Map runs the keyword table against the alert's title and description.
// Matching is case-insensitive substring search. Every rule that fires
// contributes one match, in table order. When nothing fires the default
// technique is returned with low confidence.
func Map(alert model.Alert) []Match {
	text := strings.ToLower(alert.Title + " " + alert.Description)

	var matches []Match
	for _, rule := range keywordTable {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				matches = append(matches, Match{Technique: rule.technique, Confidence: rule.confidence})
				break
			}
		}
	}

	if len(matches) == 0 {
		return []Match{defaultMatch}
	}
	return matches
}

// Attach persists the matches for an alert: each referenced technique is
// upserted by technique id, then a mapping edge with the confidence score
// is inserted. A duplicate edge from a previous run is not an error.
func Attach(ctx context.Context, db database.DBConnection, alertKey string, matches []Match) error {
	for _, m := range matches {
		techKey, err := upsertTechnique(ctx, db, m.Technique)
		if err != nil {
			return err
		}

		edge := model.TechniqueMapping{
			From:       "alerts/" + alertKey,
			To:         "techniques/" + techKey,
			Confidence: m.Confidence,
			ObjType:    "TechniqueMapping",
		}
		_, err = db.Collections["alert2technique"].CreateDocument(ctx, edge)
		if err != nil && !database.IsUniqueConstraintErr(err) {
			return err
		}
	}
	return nil
}

// DetachAlert removes every technique mapping edge owned by the alert.
// Used before regeneration so stale mappings never survive a reprocess.
func DetachAlert(ctx context.Context, db database.DBConnection, alertKey string) error {
	query := `FOR e IN alert2technique FILTER e._from == @from REMOVE e IN alert2technique`
	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"from": "alerts/" + alertKey},
	})
	if err != nil {
		return err
	}
	defer cursor.Close()
	return nil
}

func upsertTechnique(ctx context.Context, db database.DBConnection, ref model.TechniqueRef) (string, error) {
	query := `UPSERT { technique_id: @tid }
		INSERT { technique_id: @tid, name: @name, tactic: @tactic, reference: @ref, objtype: "TechniqueRef" }
		UPDATE { name: @name, tactic: @tactic }
		IN techniques
		RETURN NEW._key`

	cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{
			"tid":    ref.TechniqueID,
			"name":   ref.Name,
			"tactic": ref.Tactic,
			"ref":    "https://attack.mitre.org/techniques/" + ref.TechniqueID + "/",
		},
	})
	if err != nil {
		return "", err
	}
	defer cursor.Close()

	var key string
	for cursor.HasMore() {
		_, err = cursor.ReadDocument(ctx, &key)
		if err != nil {
			return "", err
		}
	}
	return key, nil
}
