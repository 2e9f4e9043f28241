package model

import "time"

// NormalizedItem is the common shape every source adapter produces.
// (PersonID, URLHash) is unique.
type NormalizedItem struct {
	ID          string     `json:"id"`
	PersonID    string     `json:"person_id"`
	Source      SourceType `json:"source"`
	URL         string     `json:"url"`
	URLHash     string     `json:"url_hash"`
	ContentHash string     `json:"content_hash"`
	Title       string     `json:"title"`
	Text        string     `json:"text"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
	IsOfficial  bool       `json:"is_official"`
	Confidence  int        `json:"confidence"`
	Payload     Payload    `json:"payload"`
}

// IsCareer reports whether the item carries career events.
func (it *NormalizedItem) IsCareer() bool {
	return it.Payload.Kind == PayloadCareer && it.Payload.Career != nil
}

// PayloadKind tags which variant of Payload is populated.
type PayloadKind string

const (
	PayloadArticle PayloadKind = "article"
	PayloadEntity  PayloadKind = "entity"
	PayloadRepo    PayloadKind = "repo"
	PayloadVideo   PayloadKind = "video"
	PayloadPodcast PayloadKind = "podcast"
	PayloadPaper   PayloadKind = "paper"
	PayloadPost    PayloadKind = "post"
	PayloadAnswer  PayloadKind = "answer"
	PayloadCareer  PayloadKind = "career"
)

// Payload is a tagged variant. Exactly one pointer matching Kind is set.
type Payload struct {
	Kind    PayloadKind     `json:"kind"`
	Article *ArticlePayload `json:"article,omitempty"`
	Entity  *EntityPayload  `json:"entity,omitempty"`
	Repo    *RepoPayload    `json:"repo,omitempty"`
	Video   *VideoPayload   `json:"video,omitempty"`
	Podcast *PodcastPayload `json:"podcast,omitempty"`
	Paper   *PaperPayload   `json:"paper,omitempty"`
	Post    *PostPayload    `json:"post,omitempty"`
	Answer  *AnswerPayload  `json:"answer,omitempty"`
	Career  *CareerPayload  `json:"career,omitempty"`
}

// Valid reports whether the variant pointer matches Kind.
func (p Payload) Valid() bool {
	switch p.Kind {
	case PayloadArticle:
		return p.Article != nil
	case PayloadEntity:
		return p.Entity != nil
	case PayloadRepo:
		return p.Repo != nil
	case PayloadVideo:
		return p.Video != nil
	case PayloadPodcast:
		return p.Podcast != nil
	case PayloadPaper:
		return p.Paper != nil
	case PayloadPost:
		return p.Post != nil
	case PayloadAnswer:
		return p.Answer != nil
	case PayloadCareer:
		return p.Career != nil
	default:
		return false
	}
}

// ArticlePayload describes an encyclopedia or web page.
type ArticlePayload struct {
	Lang     string `json:"lang,omitempty"`
	Domain   string `json:"domain,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// EntityPayload describes a knowledge-graph entity.
type EntityPayload struct {
	QID         string   `json:"qid"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
}

// RepoPayload describes a code repository.
type RepoPayload struct {
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
	Stars    int    `json:"stars"`
	Forks    int    `json:"forks"`
	Fork     bool   `json:"fork"`
}

// VideoPayload describes a video.
type VideoPayload struct {
	VideoID      string `json:"video_id"`
	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title,omitempty"`
	Thumbnail    string `json:"thumbnail,omitempty"`
}

// PodcastPayload describes a podcast show or episode.
type PodcastPayload struct {
	CollectionID int64  `json:"collection_id"`
	Collection   string `json:"collection"`
	Artist       string `json:"artist,omitempty"`
	FeedURL      string `json:"feed_url,omitempty"`
	EpisodeCount int    `json:"episode_count,omitempty"`
}

// PaperPayload describes an academic work.
type PaperPayload struct {
	DOI       string   `json:"doi,omitempty"`
	Venue     string   `json:"venue,omitempty"`
	Year      int      `json:"year,omitempty"`
	Citations int      `json:"citations"`
	Authors   []string `json:"authors,omitempty"`
}

// PostPayload describes a social post.
type PostPayload struct {
	PostID       string `json:"post_id"`
	Handle       string `json:"handle,omitempty"`
	Likes        int    `json:"likes"`
	Reposts      int    `json:"reposts"`
	NameFallback bool   `json:"name_fallback,omitempty"`
}

// AnswerPayload describes a generated or retrieved answer.
type AnswerPayload struct {
	Question  string   `json:"question"`
	Model     string   `json:"model,omitempty"`
	Citations []string `json:"citations,omitempty"`
}

// CareerPayload carries raw career events.
type CareerPayload struct {
	Events []CareerEvent `json:"events"`
}
