// Package diagnose implements the explanation diagnosis flow: input
// validation, the chat completion call contract, and interpretation of the
// model's structured reply.
package diagnose

// Tag is one of the fixed "stumble tags" the model may assign to an
// explanation.
type Tag struct {
	Name        string
	Description string
}

// Taxonomy is the fixed set of tags the model chooses from, in display order.
var Taxonomy = []Tag{
	{Name: "論点", Description: "何について話しているかが曖昧"},
	{Name: "根拠", Description: "なぜそう言えるかの理由が不足"},
	{Name: "具体", Description: "具体例やケースが不足"},
	{Name: "手順", Description: "説明の順序や進め方が不明瞭"},
	{Name: "留意", Description: "注意点・制約・例外条件が不足"},
	{Name: "用語", Description: "専門用語の説明が不足"},
}

// MaxTags is the maximum number of tags a diagnosis may carry.
const MaxTags = 3

// KnownTag reports whether name is part of the taxonomy.
func KnownTag(name string) bool {
	for _, t := range Taxonomy {
		if t.Name == name {
			return true
		}
	}
	return false
}

// Rank buckets a 0..100 score into the S/A/B/C/D scale.
type Rank string

const (
	RankS Rank = "S"
	RankA Rank = "A"
	RankB Rank = "B"
	RankC Rank = "C"
	RankD Rank = "D"
)

// RankForScore maps a score to its rank.
func RankForScore(score int) Rank {
	switch {
	case score >= 90:
		return RankS
	case score >= 80:
		return RankA
	case score >= 70:
		return RankB
	case score >= 60:
		return RankC
	default:
		return RankD
	}
}

var rankComments = map[Rank]string{
	RankS: "説明が明確で再現性も高いです。実務で通用するレベル。",
	RankA: "十分に明快です。根拠か具体例を1段深めるとSに届きます。",
	RankB: "要点は伝わっています。順序と具体性を補強すると伸びます。",
	RankC: "方向性は良いです。定義→理由→例の型で組み立てると改善します。",
	RankD: "まずは論点を1つに絞り、短く具体的に説明してみましょう。",
}

// Comment returns the coaching comment for the rank.
func (r Rank) Comment() string {
	return rankComments[r]
}
