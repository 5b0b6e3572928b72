package disclosurestore

const schema = `
CREATE TABLE disclosure (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	member TEXT NOT NULL,
	chamber TEXT NOT NULL,
	year TEXT NOT NULL,
	category TEXT NOT NULL,
	subject TEXT NOT NULL,
	office TEXT NOT NULL,
	report_type TEXT NOT NULL,
	filed_date TEXT NOT NULL,
	document_url TEXT NOT NULL,
	file_path TEXT NOT NULL
);
CREATE INDEX idx_disclosure_member ON disclosure (member, chamber, year);
`
