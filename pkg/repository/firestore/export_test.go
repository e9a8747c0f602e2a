package firestore

// DocID is exported for testing
var DocID = docID
