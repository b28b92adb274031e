package elasticsearch

// DefaultIndexName is used when no index name is configured.
const DefaultIndexName = "murabaat_companies"

// indexMapping is the companies index definition. Names and descriptions are
// mostly Arabic or English, so text fields carry the arabic analyzer and a
// keyword/autocomplete pair on name.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "company_text": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "decimal_digit", "arabic_normalization", "arabic_stop", "arabic_stemmer"]
        },
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase", "arabic_normalization"]
        },
        "autocomplete_search": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "arabic_normalization"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      },
      "filter": {
        "arabic_stop": {
          "type": "stop",
          "stopwords": "_arabic_"
        },
        "arabic_stemmer": {
          "type": "stemmer",
          "language": "arabic"
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":            { "type": "keyword" },
      "slug":          { "type": "keyword" },
      "name":          { "type": "text", "analyzer": "company_text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "autocomplete_search" } } },
      "description":   { "type": "text", "analyzer": "company_text" },
      "country_id":    { "type": "keyword" },
      "city_id":       { "type": "keyword" },
      "category_id":   { "type": "keyword" },
      "rating":        { "type": "float" },
      "reviews_count": { "type": "integer" },
      "is_verified":   { "type": "boolean" },
      "is_featured":   { "type": "boolean" },
      "created_at":    { "type": "date" }
    }
  }
}`
