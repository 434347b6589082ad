package book

import (
	"encoding/json"
	"fmt"
)

// encodeSnapshot renders books exactly as GET /books returns them.
func encodeSnapshot(books []Book) ([]byte, error) {
	if books == nil {
		books = []Book{}
	}
	return json.Marshal(books)
}

// decodeSnapshot parses a cached listing. Review book ids are not part of the
// wire format and are restored from the enclosing book.
func decodeSnapshot(data []byte) ([]Book, error) {
	var books []Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if books == nil {
		return nil, fmt.Errorf("decode snapshot: not a json array")
	}
	for i := range books {
		if books[i].ID == 0 {
			return nil, fmt.Errorf("decode snapshot: book %d has no id", i)
		}
		if books[i].Reviews == nil {
			books[i].Reviews = []Review{}
		}
		for j := range books[i].Reviews {
			books[i].Reviews[j].BookID = books[i].ID
		}
	}
	return books, nil
}
