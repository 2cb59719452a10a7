package script

import (
	"sort"

	"github.com/podsmith/podsmith/internal/core/taxonomy"
	"github.com/podsmith/podsmith/internal/episode/content"
)

// Topic is one spoken segment of the episode: all articles sharing a
// subcategory, with world-news regions folded into a single topic.
type Topic struct {
	Name       string
	Category   string
	Articles   []content.SourcedArticle
	WordBudget int
}

// GroupTopics partitions sourced articles into topics and splits the
// total word target across them in proportion to article count. Topics
// are ordered by (category rank, topic name) so related subcategories
// sit next to each other in the episode.
func GroupTopics(articles []content.SourcedArticle, totalWords int) []Topic {
	grouped := make(map[string]*Topic)

	for _, article := range articles {
		name := article.Subcategory
		category := article.Category

		if taxonomy.IsWorldRegion(name) {
			name = taxonomy.WorldNews
			category = taxonomy.WorldNews
		}

		topic, ok := grouped[name]
		if !ok {
			topic = &Topic{Name: name, Category: category}
			grouped[name] = topic
		}

		topic.Articles = append(topic.Articles, article)
	}

	topics := make([]Topic, 0, len(grouped))
	for _, topic := range grouped {
		topics = append(topics, *topic)
	}

	sort.Slice(topics, func(i, j int) bool {
		ri, rj := taxonomy.CategoryRank(topics[i].Category), taxonomy.CategoryRank(topics[j].Category)
		if ri != rj {
			return ri < rj
		}

		return topics[i].Name < topics[j].Name
	})

	if len(articles) > 0 {
		for i := range topics {
			topics[i].WordBudget = totalWords * len(topics[i].Articles) / len(articles)
		}
	}

	return topics
}
