package graphql

const proposalsQuery = `query Proposals($first: Int!, $skip: Int!, $orderBy: String, $orderDirection: OrderDirection) {
  proposals(first: $first, skip: $skip, orderBy: $orderBy, orderDirection: $orderDirection) {
    id
    title
    body
    author
  }
}`

const proposalsBySpaceQuery = `query ProposalsBySpace($first: Int!, $skip: Int!, $space: String!, $orderBy: String, $orderDirection: OrderDirection) {
  proposals(first: $first, skip: $skip, where: {space: $space}, orderBy: $orderBy, orderDirection: $orderDirection) {
    id
    title
    body
    author
    space {
      id
      name
    }
  }
}`

const spacesQuery = `query Spaces($first: Int!, $skip: Int!) {
  spaces(where: {verified: true}, first: $first, skip: $skip) {
    id
    name
    proposalsCount
  }
}`

const proposalByIDQuery = `query GetProposalById($id: String!) {
  proposal(id: $id) {
    id
    title
    body
    author
    space {
      id
      name
      avatar
      verified
    }
  }
}`
