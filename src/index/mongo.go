package index

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoIndex is a VectorIndex backed by a MongoDB collection, adapted from
// the teacher's MongoStore (src/memory/store/mongodb_store.go): same
// connect/ping bootstrap, retargeted onto chunk documents. Similarity
// ranking is done client-side (brute-force cosine over the fetched batch),
// since this collection is not assumed to have a $vectorSearch index
// configured — Atlas Vector Search can be layered in by adding an
// aggregation stage here without changing the VectorIndex contract.
type MongoIndex struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoIndex(ctx context.Context, uri, database, collection string) (*MongoIndex, error) {
	if uri == "" || database == "" || collection == "" {
		return nil, errors.New("mongo index: uri, database and collection are required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoIndex{client: client, collection: client.Database(database).Collection(collection)}, nil
}

type mongoChunkDoc struct {
	ChunkID    string    `bson:"chunk_id"`
	Content    string    `bson:"content"`
	Embedding  []float32 `bson:"embedding"`
	DocClass   string    `bson:"doc_class"`
	LabID      string    `bson:"lab_id,omitempty"`
	SourceFile string    `bson:"source_file"`
	Offset     int       `bson:"offset"`
}

func (mi *MongoIndex) Search(ctx context.Context, queryEmbedding []float32, k int) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	cur, err := mi.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var candidates []Candidate
	for cur.Next(ctx) {
		var doc mongoChunkDoc
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		chunk := Chunk{
			ChunkID: doc.ChunkID, Content: doc.Content, Embedding: doc.Embedding,
			DocClass: DocClass(doc.DocClass), LabID: doc.LabID,
			SourceFile: doc.SourceFile, Offset: doc.Offset,
		}
		candidates = append(candidates, Candidate{Chunk: chunk, Score: cosine(queryEmbedding, doc.Embedding)})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	topK(candidates, k)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func (mi *MongoIndex) Count(ctx context.Context) (int, error) {
	n, err := mi.collection.CountDocuments(ctx, bson.M{})
	return int(n), err
}

func (mi *MongoIndex) Close(ctx context.Context) error {
	if mi.client == nil {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return mi.client.Disconnect(c)
}
